// this package provide "mock" implementation of database for testing.
package mocks

import (
	"context"
	"errors"

	"github.com/granary-project/granary/pkg/domain"
	dbqueue "github.com/granary-project/granary/pkg/domain/queue/db"
)

type MockQueueInterface struct {
	Impl struct {
		New            func(context.Context, domain.Upload) (domain.Upload, error)
		Get            func(context.Context, int) (*domain.Upload, error)
		List           func(context.Context, dbqueue.Filter) ([]*domain.Upload, error)
		UpdateStatus   func(context.Context, int, []domain.UploadStatus, domain.UploadStatus) error
		AcceptedSeries func(context.Context, int, string, string) ([]string, error)
	}
}

func NewMockQueueInterface() *MockQueueInterface {
	return &MockQueueInterface{}
}

var errNotImplemented = errors.New("[MOCK] not implemented")

func (m *MockQueueInterface) New(ctx context.Context, upload domain.Upload) (domain.Upload, error) {
	if m.Impl.New == nil {
		return domain.Upload{}, errNotImplemented
	}
	return m.Impl.New(ctx, upload)
}

func (m *MockQueueInterface) Get(ctx context.Context, uploadId int) (*domain.Upload, error) {
	if m.Impl.Get == nil {
		return nil, errNotImplemented
	}
	return m.Impl.Get(ctx, uploadId)
}

func (m *MockQueueInterface) List(ctx context.Context, filter dbqueue.Filter) ([]*domain.Upload, error) {
	if m.Impl.List == nil {
		return nil, errNotImplemented
	}
	return m.Impl.List(ctx, filter)
}

func (m *MockQueueInterface) UpdateStatus(ctx context.Context, uploadId int, from []domain.UploadStatus, to domain.UploadStatus) error {
	if m.Impl.UpdateStatus == nil {
		return errNotImplemented
	}
	return m.Impl.UpdateStatus(ctx, uploadId, from, to)
}

func (m *MockQueueInterface) AcceptedSeries(ctx context.Context, archiveId int, name string, version string) ([]string, error) {
	if m.Impl.AcceptedSeries == nil {
		return nil, errNotImplemented
	}
	return m.Impl.AcceptedSeries(ctx, archiveId, name, version)
}
