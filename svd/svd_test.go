package svd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInteger(t *testing.T) {
	tests := []struct {
		in   string
		want Integer
	}{
		{"42", 42},
		{" 0x1F ", 0x1f},
		{"0XA8000000", 0xa8000000},
		{"#101", 5},
		{"#1x1", 5},
	}
	for _, tt := range tests {
		got, err := parseInteger(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	_, err := parseInteger("0xZZ")
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	src := `<device>
  <name>X</name>
  <cpu><name>CM0PLUS</name><nvicPrioBits>2</nvicPrioBits></cpu>
  <peripherals>
    <peripheral>
      <name>PORT</name>
      <baseAddress>0x41004400</baseAddress>
      <registers>
        <register>
          <name>DIR</name>
          <addressOffset>0x0</addressOffset>
          <resetValue>0x0</resetValue>
          <fields><field><name>DIR</name><bitRange>[31:0]</bitRange></field></fields>
        </register>
      </registers>
    </peripheral>
  </peripherals>
</device>`
	d, err := Decode(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, "CM0PLUS", d.CPU.Name)
	assert.Equal(t, Integer(2), d.CPU.NVICPrioBits)

	i, ok := d.Peripherals.Find("PORT")
	require.True(t, ok)
	p := d.Peripherals.Elements[i]
	assert.Equal(t, Integer(0x41004400), p.BaseAddress)
	require.NotNil(t, p.Registers.Registers[0].ResetValue)

	off, width, err := p.Registers.Registers[0].Fields.Elements[0].Bits()
	require.NoError(t, err)
	assert.Equal(t, uint(0), off)
	assert.Equal(t, uint(32), width)

	_, ok = d.Peripherals.Find("")
	assert.False(t, ok)
}

func TestFieldBitsErrors(t *testing.T) {
	lsb := Integer(4)
	for _, f := range []Field{
		{Name: "none"},
		{Name: "range", BitRange: "[3]"},
		{Name: "reversed", BitRange: "[1:3]"},
		{Name: "msb", LSB: &lsb, MSB: 2},
	} {
		_, _, err := f.Bits()
		assert.ErrorIs(t, err, ErrBitRange, f.Name)
	}
}
