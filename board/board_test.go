package board

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omibyte.io/bringup/configure"
	"omibyte.io/bringup/device"
	"omibyte.io/bringup/diag"
	"omibyte.io/bringup/hw"
	"omibyte.io/bringup/pin"
	"omibyte.io/bringup/resource"
	"omibyte.io/bringup/svd"
	"omibyte.io/bringup/tick"
)

func loadDevice(t *testing.T) *device.Device {
	t.Helper()
	f, err := os.Open("../device/testdata/stm32f4.svd")
	require.NoError(t, err)
	defer f.Close()
	s, err := svd.Decode(f)
	require.NoError(t, err)
	d, err := device.FromSVD(s)
	require.NoError(t, err)
	return d
}

func loadBoard(t *testing.T) *Board {
	t.Helper()
	f, err := os.Open("testdata/nucleo-f411.yaml")
	require.NoError(t, err)
	defer f.Close()
	b, err := Load(f)
	require.NoError(t, err)
	return b
}

func TestLoad(t *testing.T) {
	b := loadBoard(t)
	assert.Equal(t, "stm32f411", b.Chip)
	assert.Equal(t, uint32(0x08000201), b.Default.Addr)
	require.Len(t, b.Phases, 5)
	assert.Equal(t, pin.Alternate, b.Phases[0].Peripherals[1].Include[0].Pins[0].Mode)
	assert.Equal(t, uint8(7), b.Phases[0].Peripherals[1].Include[0].Pins[0].AF)
	require.NotNil(t, b.SysTick)
	assert.Equal(t, uint8(0x40), b.SysTick.Priority)
	require.Len(t, b.External, 1)
	assert.Equal(t, uint32(0xf0000000), b.External[0].Base)

	_, err := Load(strings.NewReader("chip: x\nbogus: 1\n"))
	assert.Error(t, err)
}

func TestOptions(t *testing.T) {
	opts := loadBoard(t).Options(loadDevice(t))
	assert.Equal(t, 86, opts.Layout.Interrupts)
	assert.Equal(t, uint32(0x20020000), opts.StackTop)

	unknown := &Board{Chip: "nrf52840", StackTop: 0x20040000}
	opts = unknown.Options(loadDevice(t))
	assert.Equal(t, 39, opts.Layout.Interrupts)
	assert.Equal(t, uint32(0x20040000), opts.StackTop)
}

type bringUp struct {
	dev   *device.Device
	mem   *hw.Memory
	radio *hw.Memory
	trace *hw.Trace
	d     *configure.Driver
}

func bringUpBoard(t *testing.T, assumeReset bool) bringUp {
	t.Helper()
	dev := loadDevice(t)
	b := loadBoard(t)
	require.NoError(t, b.Attach(dev))
	pins, err := b.PinResolver()
	require.NoError(t, err)
	phases, err := b.Resolve(dev, pins)
	require.NoError(t, err)

	mem := hw.NewMemory(dev.Registers()...)
	buses, files, err := b.Emulate()
	require.NoError(t, err)
	backend, err := b.Backend(mem, buses)
	require.NoError(t, err)
	trace := hw.NewTrace(backend, nil)

	opts := b.Options(dev)
	opts.Backend = trace
	opts.AssumeReset = assumeReset
	d := configure.New(opts, phases...)
	require.NoError(t, d.Configure(context.Background()))
	return bringUp{dev: dev, mem: mem, radio: files["radio"], trace: trace, d: d}
}

func (u bringUp) read(t *testing.T, path string) uint64 {
	t.Helper()
	r, err := u.dev.Register(path)
	require.NoError(t, err)
	v, err := u.mem.Load(r.Address)
	require.NoError(t, err)
	return v
}

// stores returns the positions of the stores to the register at path.
func (u bringUp) stores(t *testing.T, path string) []int {
	t.Helper()
	r, err := u.dev.Register(path)
	require.NoError(t, err)
	var at []int
	for i, a := range u.trace.Stores() {
		if a.Addr == r.Address {
			at = append(at, i)
		}
	}
	require.NotEmpty(t, at, path)
	return at
}

func TestBringUpBoard(t *testing.T) {
	for _, assumeReset := range []bool{false, true} {
		t.Run(fmt.Sprintf("assumeReset=%v", assumeReset), func(t *testing.T) {
			u := bringUpBoard(t, assumeReset)

			assert.Equal(t, uint64(0x00100001), u.read(t, "RCC.AHB1ENR"))
			assert.Equal(t, uint64(0x00020001), u.read(t, "RCC.APB1ENR"))
			assert.Equal(t, uint64(0x683), u.read(t, "USART2.BRR"))
			assert.Equal(t, uint64(0x202c), u.read(t, "USART2.CR1"))
			// PA2/PA3 alternate, PA5 output, debug pins untouched.
			assert.Equal(t, uint64(0xa80004a0), u.read(t, "GPIOA.MODER"))
			assert.Equal(t, uint64(15999), u.read(t, "TIM2.PSC"))
			assert.Equal(t, uint64(999), u.read(t, "TIM2.ARR"))
			assert.Equal(t, uint64(0x1), u.read(t, "TIM2.CR1"))

			csr, err := u.mem.Load(tick.CSR.Address)
			require.NoError(t, err)
			assert.Equal(t, uint64(0x7), csr)

			radio := map[uint32]uint64{0x00: 0x0b, 0x05: 76, 0x06: 0x06, 0x07: 0x0e}
			for off, want := range radio {
				v, err := u.radio.Load(off)
				require.NoError(t, err)
				assert.Equal(t, want, v, "radio register %#x", off)
			}

			prog := u.d.Program()
			names := make([]string, len(prog.Phases))
			for i, ph := range prog.Phases {
				names[i] = ph.Phase
			}
			assert.Equal(t, []string{PinClocks, "clocks", "gpio", "timers", "radio", "start"}, names)

			table := prog.Table
			assert.Equal(t, uint32(0x08000301), table.Handler(15).Addr) // SysTick
			assert.Equal(t, uint32(0x08000501), table.Handler(16+28).Addr)
			assert.Equal(t, uint32(0x08000401), table.Handler(16+38).Addr)
			assert.Equal(t, uint32(0x08000201), table.Handler(16).Addr)
		})
	}
}

func TestBringUpStoreOrder(t *testing.T) {
	u := bringUpBoard(t, false)

	tests := []struct {
		name          string
		before, after string
	}{
		{"port clock before pin mode", "RCC.AHB1ENR", "GPIOA.MODER"},
		{"port clock before pin speed", "RCC.AHB1ENR", "GPIOA.OSPEEDR"},
		{"uart clock before baud rate", "RCC.APB1ENR", "USART2.BRR"},
		{"uart clock before enable", "RCC.APB1ENR", "USART2.CR1"},
		{"timer clock before prescaler", "RCC.APB1ENR", "TIM2.PSC"},
		{"prescaler before counter enable", "TIM2.PSC", "TIM2.CR1"},
		{"reload before counter enable", "TIM2.ARR", "TIM2.CR1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := u.stores(t, tt.before)
			after := u.stores(t, tt.after)
			assert.Less(t, before[len(before)-1], after[0])
		})
	}
}

func TestResolvePinClocks(t *testing.T) {
	dev := loadDevice(t)
	b := loadBoard(t)
	require.NoError(t, b.Attach(dev))
	phases, err := b.Resolve(dev, pin.STM32F4)
	require.NoError(t, err)

	require.Equal(t, PinClocks, phases[0].Name)
	assert.Empty(t, phases[0].After)
	for _, ph := range phases[1:] {
		assert.NotEmpty(t, ph.After, ph.Name)
	}
	for _, ph := range b.Phases {
		if ph.Name == "clocks" {
			assert.Empty(t, ph.After, "board left untouched")
		}
	}

	decls := resource.Flatten(resource.NewSet(PinClocks, phases[0].Resources))
	origins := make([]string, len(decls))
	for i, d := range decls {
		origins[i] = d.Origin
	}
	assert.Equal(t, []string{
		"pin-clocks/gpio/led/PA5",
		"pin-clocks/gpio/usart2/tx/PA2",
		"pin-clocks/gpio/usart2/rx/PA3",
	}, origins)

	noPins := Board{Phases: []Phase{{Name: "p"}}}
	phases, err = noPins.Resolve(dev, nil)
	require.NoError(t, err)
	require.Len(t, phases, 1)
	assert.Empty(t, phases[0].After)
}

func TestResolveConflicts(t *testing.T) {
	src := `
chip: stm32f411
phases:
  - name: init
    peripherals:
      - name: led
        pins: [{pin: PA5, mode: output}]
      - name: spi
        pins: [{pin: PA5, mode: alternate, af: 5}]
      - name: raw
        writes: [{register: GPIOA.ODR, set: 0x1, clear: 0x0}]
`
	b, err := Load(strings.NewReader(src))
	require.NoError(t, err)
	phases, err := b.Resolve(loadDevice(t), pin.STM32F4)
	require.NoError(t, err)
	assert.Equal(t, PinClocks, phases[0].Name)

	r := configure.New(b.Options(loadDevice(t)), phases...).Validate()
	assert.True(t, r.Has(diag.UniqueClaimViolation))
	assert.True(t, r.Has(diag.MaskConflict))
	assert.True(t, r.Has(diag.InvalidMask))
}

func TestResolveErrors(t *testing.T) {
	dev := loadDevice(t)
	tests := []struct {
		name string
		b    Board
		want error
	}{
		{"unknown field", Board{Phases: []Phase{{Name: "p", Peripherals: []Peripheral{{Name: "x", Writes: []Write{{Field: "RCC.AHB1ENR.NOPE"}}}}}}}, device.ErrNotFound},
		{"empty write", Board{Phases: []Phase{{Name: "p", Peripherals: []Peripheral{{Name: "x", Writes: []Write{{}}}}}}}, ErrWrite},
		{"unknown irq", Board{Phases: []Phase{{Name: "p", Peripherals: []Peripheral{{Name: "x", IRQs: []IRQ{{IRQ: "EXTI9"}}}}}}}, device.ErrNotFound},
		{"no pin layout", Board{Phases: []Phase{{Name: "p", Peripherals: []Peripheral{{Name: "x", Pins: []Pin{{Pin: "PA1"}}}}}}}, ErrNoPinLayout},
		{"zero value", Board{Phases: []Phase{{Name: "p", Peripherals: []Peripheral{{Name: "x", Writes: []Write{{Field: "RCC.AHB1ENR.GPIOAEN", Value: new(uint64)}}}}}}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.b.Resolve(dev, nil)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}

}

func TestResolveReportsEveryViolation(t *testing.T) {
	src := `
chip: stm32f411
phases:
  - name: init
    peripherals:
      - name: rcc
        writes:
          - {field: RCC.AHB1ENR.GPIOAEN, value: 2}
          - {field: RCC.APB1ENR.TIM2EN, value: 1}
      - name: tim2
        claims: [tim2]
        writes:
          - {field: TIM2.PSC.PSC, value: 0x10000}
        include:
          - name: again
            claims: [tim2]
`
	dev := loadDevice(t)
	b, err := Load(strings.NewReader(src))
	require.NoError(t, err)
	phases, err := b.Resolve(dev, nil)
	assert.ErrorIs(t, err, diag.ErrWidthOverflow)

	var verr *configure.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Report.Violations, 2)
	assert.Equal(t, "RCC.AHB1ENR.GPIOAEN", verr.Report.Violations[0].Target)
	assert.Equal(t, []string{"init/rcc"}, verr.Report.Violations[0].Origins)
	assert.Equal(t, "TIM2.PSC.PSC", verr.Report.Violations[1].Target)
	assert.Equal(t, []string{"init/tim2"}, verr.Report.Violations[1].Origins)

	require.Len(t, phases, 1)
	r := configure.New(b.Options(dev), phases...).Validate()
	assert.Equal(t, []diag.Code{diag.UniqueClaimViolation}, r.Codes())
}

func TestIRQByNumber(t *testing.T) {
	b := Board{Phases: []Phase{{Name: "p", Peripherals: []Peripheral{{Name: "x", IRQs: []IRQ{{IRQ: "-1"}}}}}}}
	phases, err := b.Resolve(loadDevice(t), nil)
	require.NoError(t, err)
	require.Len(t, phases, 1)
}

func TestPinResolver(t *testing.T) {
	_, err := (&Board{Chip: "atsamd21g18a"}).PinResolver()
	assert.ErrorIs(t, err, ErrNoPinLayout)
}
