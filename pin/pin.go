// Package pin describes a GPIO pin as one capability record and turns it
// into resource declarations. The register layout is the STM32F4 one.
package pin

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrName    = errors.New("invalid pin name")
	ErrPort    = errors.New("unknown port")
	ErrSetting = errors.New("invalid pin setting")
)

type Mode uint8

const (
	Input Mode = iota
	Output
	Alternate
	Analog
)

type OutputType uint8

const (
	PushPull OutputType = iota
	OpenDrain
)

type Speed uint8

const (
	Low Speed = iota
	Medium
	High
	VeryHigh
)

type Pull uint8

const (
	NoPull Pull = iota
	PullUp
	PullDown
)

type Polarity uint8

const (
	ActiveHigh Polarity = iota
	ActiveLow
)

// Config is everything bring-up needs to know about one pin.
type Config struct {
	Port   byte // 'A', 'B', ...
	Number uint // 0-15
	Mode   Mode
	Type   OutputType
	Speed  Speed
	Pull   Pull
	Active Polarity
	AF     uint8 // alternate function, Alternate mode only
}

// Name returns the pin name, e.g. PA5.
func (c Config) Name() string { return fmt.Sprintf("P%c%d", c.Port, c.Number) }

// Tag returns the unique-claim tag of the pin.
func (c Config) Tag() string { return "gpio:" + c.Name() }

// ParseName splits a name like "PA5" into port and number.
func ParseName(s string) (byte, uint, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) < 3 || s[0] != 'P' || s[1] < 'A' || s[1] > 'Z' {
		return 0, 0, fmt.Errorf("%w: %q", ErrName, s)
	}
	n, err := strconv.ParseUint(s[2:], 10, 8)
	if err != nil || n > 15 {
		return 0, 0, fmt.Errorf("%w: %q", ErrName, s)
	}
	return s[1], uint(n), nil
}

// Level returns the electrical level that makes the pin asserted or not.
func Level(c Config, asserted bool) bool {
	if c.Active == ActiveLow {
		return !asserted
	}
	return asserted
}

// Asserted interprets an electrical level.
func Asserted(c Config, level bool) bool { return Level(c, level) }
