package svd

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// Integer is an SVD scalarType: decimal, 0x hexadecimal or #binary.
type Integer uint64

func parseInteger(s string) (Integer, error) {
	s = strings.TrimSpace(s)
	var (
		value uint64
		err   error
	)
	switch {
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		value, err = strconv.ParseUint(s[2:], 16, 64)
	case strings.HasPrefix(s, "#"):
		// Don't-care bits ("x") read as zero.
		value, err = strconv.ParseUint(strings.NewReplacer("x", "0", "X", "0").Replace(s[1:]), 2, 64)
	default:
		value, err = strconv.ParseUint(s, 10, 64)
	}
	if err != nil {
		return 0, fmt.Errorf("svd integer %q: %w", s, err)
	}
	return Integer(value), nil
}

func (i *Integer) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var v string
	if err := d.DecodeElement(&v, &start); err != nil {
		return err
	}
	value, err := parseInteger(v)
	if err != nil {
		return err
	}
	*i = value
	return nil
}

func (i *Integer) UnmarshalXMLAttr(attr xml.Attr) error {
	value, err := parseInteger(attr.Value)
	if err != nil {
		return err
	}
	*i = value
	return nil
}
