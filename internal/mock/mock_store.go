package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/trace-callgraph/pkg/model"
)

// MockStore is a mock implementation of the intervalstore.Store interface.
type MockStore struct {
	mock.Mock
}

// TimeSpan mocks the TimeSpan method.
func (m *MockStore) TimeSpan() model.TimeRange {
	args := m.Called()
	return args.Get(0).(model.TimeRange)
}

// AttributesMatching mocks the AttributesMatching method.
func (m *MockStore) AttributesMatching(parent model.AttributeID, pattern ...string) []model.AttributeID {
	args := m.Called(parent, pattern)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]model.AttributeID)
}

// AttributeRelative mocks the AttributeRelative method.
func (m *MockStore) AttributeRelative(parent model.AttributeID, path ...string) (model.AttributeID, error) {
	args := m.Called(parent, path)
	return args.Get(0).(model.AttributeID), args.Error(1)
}

// SubAttributes mocks the SubAttributes method.
func (m *MockStore) SubAttributes(id model.AttributeID) ([]model.AttributeID, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AttributeID), args.Error(1)
}

// AttributeName mocks the AttributeName method.
func (m *MockStore) AttributeName(id model.AttributeID) string {
	args := m.Called(id)
	return args.String(0)
}

// QuerySingle mocks the QuerySingle method.
func (m *MockStore) QuerySingle(ctx context.Context, t int64, id model.AttributeID) (model.Interval, error) {
	args := m.Called(ctx, t, id)
	return args.Get(0).(model.Interval), args.Error(1)
}

// Query2D mocks the Query2D method.
func (m *MockStore) Query2D(ctx context.Context, ids []model.AttributeID, r model.TimeRange) ([]model.Interval, error) {
	args := m.Called(ctx, ids, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Interval), args.Error(1)
}

// ExpectThread sets up a single process 0 holding thread 1 whose call stack
// 2 has the given depth attributes.
func (m *MockStore) ExpectThread(span model.TimeRange, levels []model.AttributeID) {
	m.On("TimeSpan").Return(span)
	m.On("AttributesMatching", model.RootAttribute, mock.Anything).Return([]model.AttributeID{0})
	m.On("AttributesMatching", model.AttributeID(0), mock.Anything).Return([]model.AttributeID{1})
	m.On("QuerySingle", mock.Anything, mock.Anything, mock.Anything).Return(model.Interval{}, nil)
	m.On("AttributeRelative", model.AttributeID(1), mock.Anything).Return(model.AttributeID(2), nil)
	m.On("SubAttributes", model.AttributeID(2)).Return(levels, nil)
	m.On("AttributeName", mock.Anything).Return("1")
}

// ExpectQuery sets up the Query2D answer for levels over span.
func (m *MockStore) ExpectQuery(levels []model.AttributeID, span model.TimeRange, intervals []model.Interval, err error) *mock.Call {
	return m.On("Query2D", mock.Anything, levels, span).Return(intervals, err)
}
