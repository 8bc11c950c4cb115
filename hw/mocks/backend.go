// Package mocks provides testify mocks for hw interfaces.
package mocks

import (
	"github.com/stretchr/testify/mock"

	"omibyte.io/bringup/hw"
)

// Backend is a mock hw.Backend.
type Backend struct{ mock.Mock }

func (b *Backend) Load(addr uint32) (uint64, error) {
	ret := b.Called(addr)
	return ret.Get(0).(uint64), ret.Error(1)
}

func (b *Backend) Store(addr uint32, value uint64) error {
	return b.Called(addr, value).Error(0)
}

var _ hw.Backend = (*Backend)(nil)
