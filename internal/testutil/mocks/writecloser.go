package mocks

import (
	"github.com/stretchr/testify/mock"
)

// WriteCloser is a mock of io.WriteCloser.
type WriteCloser struct {
	mock.Mock
}

// NewWriteCloser creates a WriteCloser mock whose expectations are asserted on cleanup.
func NewWriteCloser(t interface {
	mock.TestingT
	Cleanup(func())
}) *WriteCloser {
	m := &WriteCloser{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *WriteCloser) Write(p []byte) (int, error) {
	args := m.Called(p)
	return args.Int(0), args.Error(1)
}

func (m *WriteCloser) Close() error {
	args := m.Called()
	return args.Error(0)
}
