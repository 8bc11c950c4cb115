package device

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omibyte.io/bringup/bitfield"
	"omibyte.io/bringup/svd"
)

func load(t *testing.T) *Device {
	t.Helper()
	f, err := os.Open("testdata/stm32f4.svd")
	require.NoError(t, err)
	defer f.Close()
	s, err := svd.Decode(f)
	require.NoError(t, err)
	d, err := FromSVD(s)
	require.NoError(t, err)
	return d
}

func TestFromSVD(t *testing.T) {
	d := load(t)
	assert.Equal(t, "STM32F411", d.Name)
	assert.Equal(t, "CM4", d.CPU)

	r, err := d.Register("RCC.AHB1ENR")
	require.NoError(t, err)
	assert.Equal(t, uint32(0x40023830), r.Address)
	assert.Equal(t, uint(32), r.Width)
	assert.Equal(t, uint64(0x00100000), r.Reset)

	cr1, err := d.Register("TIM2.CR1")
	require.NoError(t, err)
	assert.Equal(t, uint(16), cr1.Width)

	sr, err := d.Register("usart2.sr")
	require.NoError(t, err)
	assert.Equal(t, bitfield.ReadOnly, sr.Access)
}

func TestFieldPositions(t *testing.T) {
	d := load(t)
	tests := []struct {
		path   string
		offset uint
		width  uint
	}{
		{"GPIOA.MODER.MODER5", 10, 2},
		{"GPIOA.MODER.MODER6", 12, 2},
		{"USART2.BRR.DIV_Mantissa", 4, 12},
		{"RCC.APB1ENR.USART2EN", 17, 1},
	}
	for _, tt := range tests {
		f, err := d.Field(tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.offset, f.Offset, tt.path)
		assert.Equal(t, tt.width, f.Width, tt.path)
	}

	_, err := d.Field("GPIOA.MODER.NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDerivedPeripheral(t *testing.T) {
	d := load(t)
	moder, err := d.Register("GPIOB.MODER")
	require.NoError(t, err)
	assert.Equal(t, uint32(0x40020400), moder.Address)
	assert.Equal(t, "GPIOB_MODER", moder.Name)

	p, err := d.Peripheral("GPIOB")
	require.NoError(t, err)
	assert.Equal(t, "GPIO", p.Group)
}

func TestDimRegisters(t *testing.T) {
	d := load(t)
	ccr3, err := d.Register("TIM2.CCR3")
	require.NoError(t, err)
	assert.Equal(t, uint32(0x40000040), ccr3.Address)
}

func TestInterruptsAndLayout(t *testing.T) {
	d := load(t)
	irq, err := d.Interrupt("TIM2")
	require.NoError(t, err)
	assert.Equal(t, 28, irq)

	layout := d.Layout()
	assert.Equal(t, 15, layout.CoreExceptions)
	assert.Equal(t, 39, layout.Interrupts)

	_, err = d.Interrupt("EXTI0")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBadDerivation(t *testing.T) {
	s := &svd.Device{Peripherals: svd.Peripherals{Elements: []svd.Peripheral{
		{Name: "UART1", DerivedFrom: "UART0"},
	}}}
	_, err := FromSVD(s)
	assert.ErrorIs(t, err, ErrDerivation)
}
