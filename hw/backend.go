// Package hw is the boundary between bring-up and the registers it writes.
// The engine only touches hardware through a Backend.
package hw

import (
	"fmt"

	"omibyte.io/bringup/bitfield"
)

// Backend reads and writes registers by address.
type Backend interface {
	Load(addr uint32) (uint64, error)
	Store(addr uint32, value uint64) error
}

// Exec runs ops against b. Ops share one accumulator, loaded by OpLoad and
// written back by OpStore.
func Exec(ops []bitfield.Op, b Backend) error {
	var (
		acc    uint64
		loaded bool
	)
	for i, op := range ops {
		var err error
		switch op.Kind {
		case bitfield.OpLoad:
			acc, err = b.Load(op.Addr)
			loaded = true
		case bitfield.OpAnd:
			acc &= op.Value
		case bitfield.OpOr:
			acc |= op.Value
		case bitfield.OpStore:
			if !loaded {
				err = ErrNoLoad
				break
			}
			err = b.Store(op.Addr, acc)
			loaded = false
		case bitfield.OpStoreImm:
			err = b.Store(op.Addr, op.Value)
		default:
			err = ErrUnknownOp
		}
		if err != nil {
			return fmt.Errorf("op %d (%s): %w", i, op, err)
		}
	}
	return nil
}
