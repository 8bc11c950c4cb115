package plan

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"omibyte.io/bringup/bitfield"
	"omibyte.io/bringup/vector"
)

// Namespace scopes program IDs.
var Namespace = uuid.MustParse("5b0c7e4a-3f1d-5a8e-9c2b-6d4f0a1e7b93")

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	// Canonical so equal programs encode to equal bytes and share an ID.
	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// Program is the compiled result of bring-up: the per-phase write plans in
// execution order and the frozen vector table.
type Program struct {
	Phases []*Plan       `cbor:"1,keyasint"`
	Table  *vector.Table `cbor:"2,keyasint,omitempty"`
}

// Ops returns the ops of every phase in order.
func (p *Program) Ops() []bitfield.Op {
	var ops []bitfield.Op
	for _, ph := range p.Phases {
		ops = append(ops, ph.Emit()...)
	}
	return ops
}

// Registers returns the number of register writes across all phases.
func (p *Program) Registers() int {
	n := 0
	for _, ph := range p.Phases {
		n += len(ph.Registers)
	}
	return n
}

// Marshal encodes p in canonical CBOR.
func (p *Program) Marshal() ([]byte, error) {
	return encMode.Marshal(p)
}

// Encode writes p to w.
func (p *Program) Encode(w io.Writer) error {
	data, err := p.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode program: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// ID is a name-based UUID over the canonical encoding.
func (p *Program) ID() (uuid.UUID, error) {
	data, err := p.Marshal()
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.NewSHA1(Namespace, data), nil
}

// Unmarshal decodes a program.
func Unmarshal(data []byte) (*Program, error) {
	if len(data) == 0 {
		return nil, ErrNoProgram
	}
	var p Program
	if err := decMode.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode program: %w", err)
	}
	if err := p.check(); err != nil {
		return nil, err
	}
	return &p, nil
}

// check rejects decoded programs that Execute or the table writers would
// trip over.
func (p *Program) check() error {
	for i, ph := range p.Phases {
		if ph == nil {
			return fmt.Errorf("%w: phase %d is null", ErrMalformed, i)
		}
	}
	if t := p.Table; t != nil && (t.Len() == 0 || t.Len() != t.Layout.Len()) {
		return fmt.Errorf("%w: %d vector slots for a layout of %d", ErrMalformed, t.Len(), t.Layout.Len())
	}
	return nil
}

// Decode reads a program from r.
func Decode(r io.Reader) (*Program, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}
