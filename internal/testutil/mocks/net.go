package mocks

import (
	"net"
	"time"

	"github.com/stretchr/testify/mock"
)

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// PacketConn is a mock of net.PacketConn.
type PacketConn struct {
	mock.Mock
}

// NewPacketConn creates a PacketConn mock whose expectations are asserted on cleanup.
func NewPacketConn(t testingT) *PacketConn {
	m := &PacketConn{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *PacketConn) ReadFrom(p []byte) (int, net.Addr, error) {
	args := m.Called(p)
	addr, _ := args.Get(1).(net.Addr)
	return args.Int(0), addr, args.Error(2)
}

func (m *PacketConn) WriteTo(p []byte, addr net.Addr) (int, error) {
	args := m.Called(p, addr)
	return args.Int(0), args.Error(1)
}

func (m *PacketConn) Close() error {
	return m.Called().Error(0)
}

func (m *PacketConn) LocalAddr() net.Addr {
	addr, _ := m.Called().Get(0).(net.Addr)
	return addr
}

func (m *PacketConn) SetDeadline(t time.Time) error      { return m.Called(t).Error(0) }
func (m *PacketConn) SetReadDeadline(t time.Time) error  { return m.Called(t).Error(0) }
func (m *PacketConn) SetWriteDeadline(t time.Time) error { return m.Called(t).Error(0) }

// Listener is a mock of net.Listener.
type Listener struct {
	mock.Mock
}

// NewListener creates a Listener mock whose expectations are asserted on cleanup.
func NewListener(t testingT) *Listener {
	m := &Listener{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *Listener) Accept() (net.Conn, error) {
	args := m.Called()
	conn, _ := args.Get(0).(net.Conn)
	return conn, args.Error(1)
}

func (m *Listener) Close() error {
	return m.Called().Error(0)
}

func (m *Listener) Addr() net.Addr {
	addr, _ := m.Called().Get(0).(net.Addr)
	return addr
}

// Conn is a mock of net.Conn.
type Conn struct {
	mock.Mock
}

// NewConn creates a Conn mock whose expectations are asserted on cleanup.
func NewConn(t testingT) *Conn {
	m := &Conn{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Read accepts either a fixed count or a func([]byte) int as the first
// return value, so a test can fill the buffer.
func (m *Conn) Read(b []byte) (int, error) {
	args := m.Called(b)
	if fill, ok := args.Get(0).(func([]byte) int); ok {
		return fill(b), args.Error(1)
	}
	return args.Int(0), args.Error(1)
}

func (m *Conn) Write(b []byte) (int, error) {
	args := m.Called(b)
	return args.Int(0), args.Error(1)
}

func (m *Conn) Close() error {
	return m.Called().Error(0)
}

func (m *Conn) LocalAddr() net.Addr {
	addr, _ := m.Called().Get(0).(net.Addr)
	return addr
}

func (m *Conn) RemoteAddr() net.Addr {
	addr, _ := m.Called().Get(0).(net.Addr)
	return addr
}

func (m *Conn) SetDeadline(t time.Time) error      { return m.Called(t).Error(0) }
func (m *Conn) SetReadDeadline(t time.Time) error  { return m.Called(t).Error(0) }
func (m *Conn) SetWriteDeadline(t time.Time) error { return m.Called(t).Error(0) }
