// this package provide "mock" implementation of database for testing.
package mocks

import (
	"context"
	"errors"
	"time"

	"github.com/granary-project/granary/pkg/domain"
)

type MockPublishingInterface struct {
	Impl struct {
		NewSource              func(context.Context, domain.SourcePublication) (domain.SourcePublication, error)
		NewBinaries            func(context.Context, []domain.BinaryPublication) ([]domain.BinaryPublication, error)
		NewPublicationSet      func(context.Context, int, []domain.SourcePublication, []domain.BinaryPublication) ([]domain.SourcePublication, []domain.BinaryPublication, error)
		MarkPublished          func(context.Context, time.Time, []int, []int) error
		LiveSources            func(context.Context, int, int, domain.Pocket) ([]*domain.SourcePublication, error)
		LiveBinaries           func(context.Context, int, int, domain.Pocket) ([]*domain.BinaryPublication, error)
		ActiveSource           func(context.Context, int, int, domain.Pocket, string) (*domain.SourcePublication, error)
		ActiveBinariesOfSource func(context.Context, int, int, domain.Pocket, int) ([]*domain.BinaryPublication, error)
		Apply                  func(context.Context, domain.DominationDecisions) error
		RequestDeletion        func(context.Context, time.Time, time.Time, []int, []int) error
		ConflictingFiles       func(context.Context, int, []domain.PackageFile) ([]string, error)
	}
}

func NewMockPublishingInterface() *MockPublishingInterface {
	return &MockPublishingInterface{}
}

var errNotImplemented = errors.New("[MOCK] not implemented")

func (m *MockPublishingInterface) NewSource(ctx context.Context, pub domain.SourcePublication) (domain.SourcePublication, error) {
	if m.Impl.NewSource == nil {
		return domain.SourcePublication{}, errNotImplemented
	}
	return m.Impl.NewSource(ctx, pub)
}

func (m *MockPublishingInterface) NewBinaries(ctx context.Context, pubs []domain.BinaryPublication) ([]domain.BinaryPublication, error) {
	if m.Impl.NewBinaries == nil {
		return nil, errNotImplemented
	}
	return m.Impl.NewBinaries(ctx, pubs)
}

func (m *MockPublishingInterface) NewPublicationSet(ctx context.Context, doneUploadId int, sources []domain.SourcePublication, binaries []domain.BinaryPublication) ([]domain.SourcePublication, []domain.BinaryPublication, error) {
	if m.Impl.NewPublicationSet == nil {
		return nil, nil, errNotImplemented
	}
	return m.Impl.NewPublicationSet(ctx, doneUploadId, sources, binaries)
}

func (m *MockPublishingInterface) MarkPublished(ctx context.Context, when time.Time, sourceIds []int, binaryIds []int) error {
	if m.Impl.MarkPublished == nil {
		return errNotImplemented
	}
	return m.Impl.MarkPublished(ctx, when, sourceIds, binaryIds)
}

func (m *MockPublishingInterface) LiveSources(ctx context.Context, archiveId, seriesId int, pocket domain.Pocket) ([]*domain.SourcePublication, error) {
	if m.Impl.LiveSources == nil {
		return nil, errNotImplemented
	}
	return m.Impl.LiveSources(ctx, archiveId, seriesId, pocket)
}

func (m *MockPublishingInterface) LiveBinaries(ctx context.Context, archiveId, seriesId int, pocket domain.Pocket) ([]*domain.BinaryPublication, error) {
	if m.Impl.LiveBinaries == nil {
		return nil, errNotImplemented
	}
	return m.Impl.LiveBinaries(ctx, archiveId, seriesId, pocket)
}

func (m *MockPublishingInterface) ActiveSource(ctx context.Context, archiveId, seriesId int, pocket domain.Pocket, name string) (*domain.SourcePublication, error) {
	if m.Impl.ActiveSource == nil {
		return nil, errNotImplemented
	}
	return m.Impl.ActiveSource(ctx, archiveId, seriesId, pocket, name)
}

func (m *MockPublishingInterface) ActiveBinariesOfSource(ctx context.Context, archiveId, seriesId int, pocket domain.Pocket, sourceReleaseId int) ([]*domain.BinaryPublication, error) {
	if m.Impl.ActiveBinariesOfSource == nil {
		return nil, errNotImplemented
	}
	return m.Impl.ActiveBinariesOfSource(ctx, archiveId, seriesId, pocket, sourceReleaseId)
}

func (m *MockPublishingInterface) Apply(ctx context.Context, decisions domain.DominationDecisions) error {
	if m.Impl.Apply == nil {
		return errNotImplemented
	}
	return m.Impl.Apply(ctx, decisions)
}

func (m *MockPublishingInterface) RequestDeletion(ctx context.Context, when time.Time, scheduledFor time.Time, sourceIds []int, binaryIds []int) error {
	if m.Impl.RequestDeletion == nil {
		return errNotImplemented
	}
	return m.Impl.RequestDeletion(ctx, when, scheduledFor, sourceIds, binaryIds)
}

func (m *MockPublishingInterface) ConflictingFiles(ctx context.Context, archiveId int, candidates []domain.PackageFile) ([]string, error) {
	if m.Impl.ConflictingFiles == nil {
		return nil, errNotImplemented
	}
	return m.Impl.ConflictingFiles(ctx, archiveId, candidates)
}
