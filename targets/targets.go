// Package targets is the catalogue of supported chip series: CPU, vector
// table shape and memory map.
package targets

import (
	_ "embed"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	"omibyte.io/bringup/vector"
)

//go:embed targets.yaml
var rawTargets []byte

var targets Targets

var (
	ErrSeriesNotFound = errors.New("series not found")
	ErrChipNotFound   = errors.New("chip not found")
)

func All() Targets {
	return targets
}

type Targets []TargetInfo
type TargetInfo struct {
	Series         string   `yaml:"series"`
	Chips          []string `yaml:"chips"`
	Cpu            string   `yaml:"cpu"`
	Architecture   string   `yaml:"architecture"`
	Endian         string   `yaml:"endian"`
	CoreExceptions int      `yaml:"coreExceptions"`
	Interrupts     int      `yaml:"interrupts"`
	FlashBase      uint32   `yaml:"flashBase"`
	RAMBase        uint32   `yaml:"ramBase"`
	RAMSize        uint32   `yaml:"ramSize"`
	Pins           string   `yaml:"pins"`
	Tags           []string `yaml:"tags"`
}

// Layout returns the vector table shape of the series.
func (t TargetInfo) Layout() vector.Layout {
	return vector.Layout{CoreExceptions: t.CoreExceptions, Interrupts: t.Interrupts}
}

// StackTop returns the initial stack pointer: the end of RAM.
func (t TargetInfo) StackTop() uint32 {
	return t.RAMBase + t.RAMSize
}

// ByteOrder returns the byte order of the vector table image.
func (t TargetInfo) ByteOrder() binary.ByteOrder {
	if t.Endian == "big" {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (t Targets) FindBySeries(name string) (TargetInfo, error) {
	for _, target := range t {
		if target.Series == strings.ToLower(name) {
			return target, nil
		}
	}
	return TargetInfo{}, fmt.Errorf("%w: %s", ErrSeriesNotFound, name)
}

func (t Targets) FindByChip(name string) (TargetInfo, error) {
	for _, target := range t {
		if slices.Contains(target.Chips, strings.ToLower(name)) {
			return target, nil
		}
	}
	return TargetInfo{}, fmt.Errorf("%w: %s", ErrChipNotFound, name)
}

func init() {
	var t struct {
		Elements []TargetInfo `yaml:"targets"`
	}
	if err := yaml.Unmarshal(rawTargets, &t); err != nil {
		panic(err)
	}

	targets = t.Elements
}
