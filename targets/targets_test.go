package targets

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFind(t *testing.T) {
	info, err := All().FindByChip("STM32F411")
	require.NoError(t, err)
	assert.Equal(t, "stm32f4", info.Series)
	assert.Equal(t, "stm32f4", info.Pins)
	assert.Equal(t, 1+15+86, info.Layout().Len())
	assert.Equal(t, uint32(0x20020000), info.StackTop())
	assert.Equal(t, binary.LittleEndian, info.ByteOrder())

	samd, err := All().FindBySeries("ATSAMD21")
	require.NoError(t, err)
	assert.Equal(t, "cortex-m0plus", samd.Cpu)
	assert.Empty(t, samd.Pins)

	_, err = All().FindBySeries("esp32")
	assert.ErrorIs(t, err, ErrSeriesNotFound)
	_, err = All().FindByChip("rp2040")
	assert.ErrorIs(t, err, ErrChipNotFound)
}

func TestCatalogueLayouts(t *testing.T) {
	for _, info := range All() {
		assert.Equal(t, 15, info.CoreExceptions, info.Series)
		assert.Positive(t, info.Interrupts, info.Series)
		assert.NotEmpty(t, info.Chips, info.Series)
	}
}
