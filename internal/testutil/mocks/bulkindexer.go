package mocks

import (
	"context"

	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/stretchr/testify/mock"
)

// BulkIndexer is a mock of esutil.BulkIndexer.
type BulkIndexer struct {
	mock.Mock
}

// NewBulkIndexer creates a BulkIndexer mock whose expectations are asserted on cleanup.
func NewBulkIndexer(t interface {
	mock.TestingT
	Cleanup(func())
}) *BulkIndexer {
	m := &BulkIndexer{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *BulkIndexer) Add(ctx context.Context, item esutil.BulkIndexerItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *BulkIndexer) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *BulkIndexer) Stats() esutil.BulkIndexerStats {
	args := m.Called()
	if s, ok := args.Get(0).(esutil.BulkIndexerStats); ok {
		return s
	}
	return esutil.BulkIndexerStats{}
}
