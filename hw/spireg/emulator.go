package spireg

import (
	"errors"
	"fmt"
	"strings"

	"tinygo.org/x/drivers"

	"omibyte.io/bringup/hw"
)

var (
	ErrCommand = errors.New("unsupported command")
	ErrPreset  = errors.New("unknown chip preset")
)

var presets = map[string]Config{
	"nrf24": NRF24,
}

// Preset returns the framing of a known chip.
func Preset(name string) (Config, error) {
	cfg, ok := presets[strings.ToLower(name)]
	if !ok {
		return Config{}, fmt.Errorf("%w: %q", ErrPreset, name)
	}
	return cfg, nil
}

// Emulator is an SPI bus with one register chip on it, answering the
// framing of its Config from regs. Command-only transactions are accepted
// and ignored.
type Emulator struct {
	cfg  Config
	regs hw.Backend
}

// NewEmulator returns a bus serving regs with the framing of cfg.
func NewEmulator(cfg Config, regs hw.Backend) *Emulator {
	return &Emulator{cfg: New(nil, cfg).cfg, regs: regs}
}

func (e *Emulator) Tx(w, r []byte) error {
	if len(w) < 2 {
		return nil
	}
	cmd := w[0]
	addr := uint32(cmd & e.cfg.AddrMask)
	data := w[1:]
	if len(data) > 8 {
		data = data[:8]
	}
	switch cmd &^ e.cfg.AddrMask {
	case e.cfg.WriteCmd:
		return e.regs.Store(addr, decode(e.cfg.Order, data))
	case e.cfg.ReadCmd:
		v, err := e.regs.Load(addr)
		if err != nil {
			return err
		}
		if len(r) >= len(w) {
			r[0] = 0
			encode(e.cfg.Order, r[1:1+len(data)], v)
		}
		return nil
	}
	return fmt.Errorf("%w: %#02x", ErrCommand, cmd)
}

func (e *Emulator) Transfer(b byte) (byte, error) {
	return 0, e.Tx([]byte{b}, nil)
}

var _ drivers.SPI = (*Emulator)(nil)
