// Package svd decodes CMSIS-SVD device descriptions.
package svd

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var ErrBitRange = errors.New("invalid bit range")

type Device struct {
	Name        string      `xml:"name"`
	Description string      `xml:"description"`
	Series      string      `xml:"series"`
	Version     string      `xml:"version"`
	Vendor      string      `xml:"vendor"`
	CPU         CPU         `xml:"cpu"`
	AddressUnit Integer     `xml:"addressUnitBits"`
	Width       Integer     `xml:"width"`
	Size        Integer     `xml:"size"`
	Access      string      `xml:"access"`
	ResetValue  Integer     `xml:"resetValue"`
	ResetMask   Integer     `xml:"resetMask"`
	Peripherals Peripherals `xml:"peripherals"`
}

type CPU struct {
	Name             string  `xml:"name"`
	Revision         string  `xml:"revision"`
	Endian           string  `xml:"endian"`
	MPUPresent       bool    `xml:"mpuPresent"`
	FPUPresent       bool    `xml:"fpuPresent"`
	NVICPrioBits     Integer `xml:"nvicPrioBits"`
	VendorSystick    bool    `xml:"vendorSystickConfig"`
	DeviceInterrupts Integer `xml:"deviceNumInterrupts"`
}

type Peripherals struct {
	Elements []Peripheral `xml:"peripheral"`
}

// Find returns the index of the named peripheral.
func (p Peripherals) Find(name string) (int, bool) {
	if name == "" {
		return -1, false
	}
	for i, pp := range p.Elements {
		if pp.Name == name {
			return i, true
		}
	}
	return -1, false
}

type Peripheral struct {
	Name        string      `xml:"name"`
	Description string      `xml:"description"`
	Group       string      `xml:"groupName"`
	BaseAddress Integer     `xml:"baseAddress"`
	Size        Integer     `xml:"size"`
	Access      string      `xml:"access"`
	ResetValue  *Integer    `xml:"resetValue"`
	Interrupts  []Interrupt `xml:"interrupt"`
	Registers   Registers   `xml:"registers"`
	DerivedFrom string      `xml:"derivedFrom,attr"`
}

type Interrupt struct {
	Name        string  `xml:"name"`
	Description string  `xml:"description"`
	Value       Integer `xml:"value"`
}

type Registers struct {
	Registers []Register `xml:"register"`
	Clusters  []Cluster  `xml:"cluster"`
}

type Cluster struct {
	Name          string     `xml:"name"`
	Description   string     `xml:"description"`
	Dim           Integer    `xml:"dim"`
	DimIncrement  Integer    `xml:"dimIncrement"`
	AddressOffset Integer    `xml:"addressOffset"`
	Registers     []Register `xml:"register"`
}

type Register struct {
	Name          string   `xml:"name"`
	Description   string   `xml:"description"`
	AddressOffset Integer  `xml:"addressOffset"`
	Size          Integer  `xml:"size"`
	Access        string   `xml:"access"`
	ResetValue    *Integer `xml:"resetValue"`
	Dim           Integer  `xml:"dim"`
	DimIncrement  Integer  `xml:"dimIncrement"`
	Alternate     string   `xml:"alternateRegister"`
	Fields        Fields   `xml:"fields"`
}

type Fields struct {
	Elements []Field `xml:"field"`
}

type Field struct {
	Name        string   `xml:"name"`
	Description string   `xml:"description"`
	BitOffset   *Integer `xml:"bitOffset"`
	BitWidth    Integer  `xml:"bitWidth"`
	LSB         *Integer `xml:"lsb"`
	MSB         Integer  `xml:"msb"`
	BitRange    string   `xml:"bitRange"`
	Access      string   `xml:"access"`
}

// Bits returns offset and width from whichever of the three SVD bit
// position styles the field uses.
func (f Field) Bits() (offset, width uint, err error) {
	switch {
	case f.BitOffset != nil:
		width = uint(f.BitWidth)
		if width == 0 {
			width = 1
		}
		return uint(*f.BitOffset), width, nil
	case f.LSB != nil:
		if f.MSB < *f.LSB {
			return 0, 0, fmt.Errorf("%s: msb %d < lsb %d: %w", f.Name, f.MSB, *f.LSB, ErrBitRange)
		}
		return uint(*f.LSB), uint(f.MSB-*f.LSB) + 1, nil
	case f.BitRange != "":
		r := strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(f.BitRange), "["), "]")
		hi, lo, ok := strings.Cut(r, ":")
		if !ok {
			return 0, 0, fmt.Errorf("%s: %q: %w", f.Name, f.BitRange, ErrBitRange)
		}
		msb, err1 := strconv.ParseUint(hi, 10, 8)
		lsb, err2 := strconv.ParseUint(lo, 10, 8)
		if err1 != nil || err2 != nil || msb < lsb {
			return 0, 0, fmt.Errorf("%s: %q: %w", f.Name, f.BitRange, ErrBitRange)
		}
		return uint(lsb), uint(msb-lsb) + 1, nil
	}
	return 0, 0, fmt.Errorf("%s: no bit position: %w", f.Name, ErrBitRange)
}

// Decode parses an SVD document.
func Decode(r io.Reader) (*Device, error) {
	var dev Device
	if err := xml.NewDecoder(r).Decode(&dev); err != nil {
		return nil, fmt.Errorf("svd: %w", err)
	}
	return &dev, nil
}
