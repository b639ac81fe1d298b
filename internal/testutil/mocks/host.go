// Package mocks holds testify mocks for the interfaces listed in testutil.
package mocks

import (
	"github.com/stretchr/testify/mock"
)

// Host is a mock of transfer.Host.
type Host struct {
	mock.Mock
}

// NewHost creates a Host mock whose expectations are asserted on cleanup.
func NewHost(t interface {
	mock.TestingT
	Cleanup(func())
}) *Host {
	m := &Host{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *Host) RequestBytes(length int) []byte {
	args := m.Called(length)
	if b, ok := args.Get(0).([]byte); ok {
		return b
	}
	return nil
}

func (m *Host) DeliverOutput(data []byte) bool {
	args := m.Called(data)
	return args.Bool(0)
}

func (m *Host) ReportError(msg string) {
	m.Called(msg)
}
