package startup

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omibyte.io/bringup/bitfield"
	"omibyte.io/bringup/configure"
	"omibyte.io/bringup/diag"
	"omibyte.io/bringup/hw"
	"omibyte.io/bringup/resource"
	"omibyte.io/bringup/vector"
)

func driver(b hw.Backend, claims ...resource.Item) *configure.Driver {
	return configure.New(configure.Options{
		Layout:   vector.CortexM(8),
		StackTop: 0x20002000,
		Default:  resource.Handler{Symbol: "Default_Handler", Addr: 0x101},
		Backend:  b,
	}, configure.Phase{Name: "init", Resources: resource.NewSet("app", claims...)})
}

func TestBoot(t *testing.T) {
	reg := bitfield.Register{Address: 0x40000000, Width: 32}
	mem := hw.NewMemory(reg)
	gate := &Gate{}

	ran := false
	h := Harness{Config: driver(mem, resource.Write(bitfield.Mask{Reg: reg, Set: 1, Clear: 1})), Interrupts: gate}
	err := h.Boot(context.Background(), func(ctx context.Context) error {
		// Configuration is complete and interrupts are live once the app runs.
		v, _ := mem.Load(reg.Address)
		assert.Equal(t, uint64(1), v)
		assert.True(t, gate.Enabled())
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestBootHaltsOnConfigureFailure(t *testing.T) {
	gate := &Gate{}
	d := driver(hw.NewMemory(), resource.Unique{Tag: "gpio:PA5"}, resource.Unique{Tag: "gpio:PA5"})
	h := Harness{Config: d, Interrupts: gate}

	err := h.Boot(context.Background(), func(context.Context) error {
		t.Fatal("application must not run")
		return nil
	})
	assert.ErrorIs(t, err, ErrHalted)
	assert.ErrorIs(t, err, diag.ErrUniqueClaimViolation)
	assert.False(t, gate.Enabled())
}

func TestBootReturnsAppError(t *testing.T) {
	appErr := errors.New("app exited")
	h := Harness{Config: driver(hw.NewMemory()), Interrupts: &Gate{}}
	assert.ErrorIs(t, h.Boot(context.Background(), func(context.Context) error { return appErr }), appErr)
}
