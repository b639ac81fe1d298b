package mocks

import (
	"net/http"

	"github.com/stretchr/testify/mock"
)

// HTTPDoer is a mock of an HTTP client.
type HTTPDoer struct {
	mock.Mock
}

// NewHTTPDoer creates an HTTPDoer mock whose expectations are asserted on cleanup.
func NewHTTPDoer(t testingT) *HTTPDoer {
	m := &HTTPDoer{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *HTTPDoer) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	resp, _ := args.Get(0).(*http.Response)
	return resp, args.Error(1)
}
