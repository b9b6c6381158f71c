// this package provide "mock" implementation of database for testing.
package mocks

import (
	"context"
	"errors"

	"github.com/granary-project/granary/pkg/domain"
)

type MockCopyJobInterface struct {
	Impl struct {
		New     func(context.Context, domain.CopyJob) (domain.CopyJob, error)
		Get     func(context.Context, int) (domain.CopyJob, error)
		Pop     func(context.Context, func(domain.CopyJob) error) (bool, error)
		Release func(context.Context, int) error
		Cancel  func(context.Context, int) error
	}
}

func NewMockCopyJobInterface() *MockCopyJobInterface {
	return &MockCopyJobInterface{}
}

var errNotImplemented = errors.New("[MOCK] not implemented")

func (m *MockCopyJobInterface) New(ctx context.Context, job domain.CopyJob) (domain.CopyJob, error) {
	if m.Impl.New == nil {
		return domain.CopyJob{}, errNotImplemented
	}
	return m.Impl.New(ctx, job)
}

func (m *MockCopyJobInterface) Get(ctx context.Context, jobId int) (domain.CopyJob, error) {
	if m.Impl.Get == nil {
		return domain.CopyJob{}, errNotImplemented
	}
	return m.Impl.Get(ctx, jobId)
}

func (m *MockCopyJobInterface) Pop(ctx context.Context, callback func(domain.CopyJob) error) (bool, error) {
	if m.Impl.Pop == nil {
		return false, errNotImplemented
	}
	return m.Impl.Pop(ctx, callback)
}

func (m *MockCopyJobInterface) Release(ctx context.Context, jobId int) error {
	if m.Impl.Release == nil {
		return errNotImplemented
	}
	return m.Impl.Release(ctx, jobId)
}

func (m *MockCopyJobInterface) Cancel(ctx context.Context, jobId int) error {
	if m.Impl.Cancel == nil {
		return errNotImplemented
	}
	return m.Impl.Cancel(ctx, jobId)
}
