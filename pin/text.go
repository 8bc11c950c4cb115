package pin

import (
	"fmt"
	"strings"
)

var (
	modeNames     = []string{"input", "output", "alternate", "analog"}
	typeNames     = []string{"push-pull", "open-drain"}
	speedNames    = []string{"low", "medium", "high", "very-high"}
	pullNames     = []string{"none", "up", "down"}
	polarityNames = []string{"high", "low"}
)

func lookup(kind string, names []string, text []byte) (uint8, error) {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	for i, n := range names {
		if n == s {
			return uint8(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %s %q", ErrSetting, kind, s)
}

func name(names []string, i uint8) string {
	if int(i) < len(names) {
		return names[i]
	}
	return fmt.Sprintf("%d", i)
}

func (m Mode) String() string       { return name(modeNames, uint8(m)) }
func (t OutputType) String() string { return name(typeNames, uint8(t)) }
func (s Speed) String() string      { return name(speedNames, uint8(s)) }
func (p Pull) String() string       { return name(pullNames, uint8(p)) }
func (p Polarity) String() string   { return name(polarityNames, uint8(p)) }

func (m *Mode) UnmarshalText(text []byte) error {
	v, err := lookup("mode", modeNames, text)
	*m = Mode(v)
	return err
}

func (t *OutputType) UnmarshalText(text []byte) error {
	v, err := lookup("output type", typeNames, text)
	*t = OutputType(v)
	return err
}

func (s *Speed) UnmarshalText(text []byte) error {
	v, err := lookup("speed", speedNames, text)
	*s = Speed(v)
	return err
}

func (p *Pull) UnmarshalText(text []byte) error {
	v, err := lookup("pull", pullNames, text)
	*p = Pull(v)
	return err
}

func (p *Polarity) UnmarshalText(text []byte) error {
	v, err := lookup("polarity", polarityNames, text)
	*p = Polarity(v)
	return err
}
