package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omibyte.io/bringup/bitfield"
	"omibyte.io/bringup/diag"
	"omibyte.io/bringup/resource"
	"omibyte.io/bringup/vector"
)

var (
	cr8 = bitfield.Register{Name: "CR", Address: 0x40000000, Width: 8}
	sr  = bitfield.Register{Name: "SR", Address: 0x40000004, Width: 8, Access: bitfield.ReadOnly}
	h   = resource.Handler{Symbol: "H", Addr: 0x101}
	h2  = resource.Handler{Symbol: "H2", Addr: 0x201}
)

func pin(name, tag string) resource.Set {
	return resource.NewSet(name, resource.Unique{Tag: tag})
}

func TestUniqueClaim(t *testing.T) {
	once := resource.NewSet("app", pin("led", "gpio:PA5"))
	assert.True(t, Declarations(once, Options{}).Valid())

	twice := resource.NewSet("app", pin("led", "gpio:PA5"), pin("spi", "gpio:PA5"))
	r := Declarations(twice, Options{})
	require.False(t, r.Valid())
	require.Len(t, r.Violations, 1)
	v := r.Violations[0]
	assert.Equal(t, diag.UniqueClaimViolation, v.Code)
	assert.Equal(t, "gpio:PA5", v.Target)
	assert.Equal(t, []string{"app/led", "app/spi"}, v.Origins)
	assert.ErrorIs(t, r.Err(), diag.ErrUniqueClaimViolation)
}

func TestMaskConflictNamesBothOrigins(t *testing.T) {
	root := resource.NewSet("app",
		resource.NewSet("a", resource.Write(bitfield.Mask{Reg: cr8, Set: 0x01, Clear: 0x01})),
		resource.NewSet("b", resource.Write(bitfield.Mask{Reg: cr8, Set: 0x00, Clear: 0x03})),
		resource.NewSet("c", resource.Write(bitfield.Mask{Reg: cr8, Set: 0x10, Clear: 0x10})),
	)
	r := Declarations(root, Options{})
	require.Len(t, r.Violations, 1)
	assert.Equal(t, diag.MaskConflict, r.Violations[0].Code)
	assert.Equal(t, []string{"app/a", "app/b"}, r.Violations[0].Origins)
}

func TestWidthAndAccessMismatch(t *testing.T) {
	wide := cr8
	wide.Width = 16
	wo := cr8
	wo.Access = bitfield.WriteOnly
	root := resource.NewSet("app",
		resource.Write(bitfield.Mask{Reg: cr8, Set: 1, Clear: 1}),
		resource.Write(bitfield.Mask{Reg: wide, Set: 2, Clear: 2}),
		resource.Write(bitfield.Mask{Reg: wo, Set: 4, Clear: 4}),
	)
	r := Declarations(root, Options{})
	assert.True(t, r.Has(diag.WidthMismatch))
	assert.True(t, r.Has(diag.AccessMismatch))
	assert.False(t, r.Has(diag.MaskConflict))
}

func TestResetMismatch(t *testing.T) {
	other := cr8
	other.Reset = 0x80
	tests := []struct {
		name  string
		first bitfield.Register
		then  bitfield.Register
		want  []diag.Code
	}{
		{"same reset", cr8, cr8, nil},
		{"documented first", other, cr8, []diag.Code{diag.ResetMismatch}},
		{"documented last", cr8, other, []diag.Code{diag.ResetMismatch}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := resource.NewSet("app",
				resource.NewSet("a", resource.Write(bitfield.Mask{Reg: tt.first, Set: 1, Clear: 1})),
				resource.NewSet("b", resource.Write(bitfield.Mask{Reg: tt.then, Set: 2, Clear: 2})),
			)
			r := Declarations(root, Options{})
			assert.Equal(t, tt.want, r.Codes())
			if tt.want != nil {
				assert.Equal(t, []string{"app/a", "app/b"}, r.Violations[0].Origins)
				assert.ErrorIs(t, r.Err(), diag.ErrResetMismatch)
			}
		})
	}
}

func TestMaskShapeAndReadOnly(t *testing.T) {
	root := resource.NewSet("app",
		resource.Write(bitfield.Mask{Reg: cr8, Set: 0x100, Clear: 0x100}),
		resource.Write(bitfield.Mask{Reg: cr8, Set: 0x02, Clear: 0x00}),
		resource.Write(bitfield.Mask{Reg: sr, Set: 0x01, Clear: 0x01}),
	)
	r := Declarations(root, Options{})
	assert.Equal(t, []diag.Code{diag.WidthOverflow, diag.InvalidMask, diag.ReadOnlyWrite}, r.Codes())
}

func TestIrqBindings(t *testing.T) {
	same := resource.NewSet("app",
		resource.NewSet("a", resource.Bind(3, h)),
		resource.NewSet("b", resource.Bind(3, h)),
	)
	assert.True(t, Declarations(same, Options{}).Valid(), "rebinding the same handler is idempotent")

	dup := resource.NewSet("app",
		resource.NewSet("a", resource.Bind(3, h)),
		resource.NewSet("b", resource.Bind(3, h2)),
	)
	r := Declarations(dup, Options{})
	require.Len(t, r.Violations, 1)
	assert.Equal(t, diag.IrqDuplicate, r.Violations[0].Code)
	assert.Equal(t, []string{"app/a", "app/b"}, r.Violations[0].Origins)

	layout := vector.Layout{CoreExceptions: 3, Interrupts: 4}
	far := resource.NewSet("app", resource.Bind(9, h))
	r = Declarations(far, Options{Layout: &layout})
	assert.Equal(t, []diag.Code{diag.IrqOutOfRange}, r.Codes())
}

func TestCollectAllVersusFailFast(t *testing.T) {
	root := resource.NewSet("app",
		pin("a", "gpio:PA5"), pin("b", "gpio:PA5"),
		resource.Write(bitfield.Mask{Reg: cr8, Set: 1, Clear: 1}),
		resource.Write(bitfield.Mask{Reg: cr8, Set: 0, Clear: 1}),
		resource.Bind(3, h), resource.Bind(3, h2),
	)
	all := Declarations(root, Options{})
	assert.Equal(t, []diag.Code{diag.MaskConflict, diag.UniqueClaimViolation, diag.IrqDuplicate}, all.Codes())

	first := Declarations(root, Options{FailFast: true})
	assert.Equal(t, []diag.Code{diag.MaskConflict}, first.Codes())
}

func TestDescribeRules(t *testing.T) {
	lines := Describe(New(Options{}).Rules())
	require.Len(t, lines, 6)
	assert.Equal(t, "1. register-identity", lines[0])
}
