// this package provide "mock" implementation of database for testing.
package mocks

import (
	"context"
	"errors"

	"github.com/granary-project/granary/pkg/domain"
	dbinitseries "github.com/granary-project/granary/pkg/domain/initseries/db"
)

type MockInitSeriesInterface struct {
	Impl struct {
		Distribution        func(context.Context, string) (domain.Distribution, error)
		PrimaryArchive      func(context.Context, string) (domain.Archive, error)
		PendingBuildSources func(context.Context, int, []string, []string) ([]string, error)
		HeldUploadNames     func(context.Context, int, []domain.Pocket, []string) ([]string, error)
		ActiveSourceTitles  func(context.Context, int, int, []domain.Pocket) ([]string, error)
		PacksetSourceNames  func(context.Context, []int) ([]string, error)
		Initialize          func(context.Context, dbinitseries.Plan) error
	}
}

func NewMockInitSeriesInterface() *MockInitSeriesInterface {
	return &MockInitSeriesInterface{}
}

var errNotImplemented = errors.New("[MOCK] not implemented")

func (m *MockInitSeriesInterface) Distribution(ctx context.Context, name string) (domain.Distribution, error) {
	if m.Impl.Distribution == nil {
		return domain.Distribution{}, errNotImplemented
	}
	return m.Impl.Distribution(ctx, name)
}

func (m *MockInitSeriesInterface) PrimaryArchive(ctx context.Context, distribution string) (domain.Archive, error) {
	if m.Impl.PrimaryArchive == nil {
		return domain.Archive{}, errNotImplemented
	}
	return m.Impl.PrimaryArchive(ctx, distribution)
}

func (m *MockInitSeriesInterface) PendingBuildSources(ctx context.Context, seriesId int, archTags []string, names []string) ([]string, error) {
	if m.Impl.PendingBuildSources == nil {
		return nil, errNotImplemented
	}
	return m.Impl.PendingBuildSources(ctx, seriesId, archTags, names)
}

func (m *MockInitSeriesInterface) HeldUploadNames(ctx context.Context, seriesId int, pockets []domain.Pocket, names []string) ([]string, error) {
	if m.Impl.HeldUploadNames == nil {
		return nil, errNotImplemented
	}
	return m.Impl.HeldUploadNames(ctx, seriesId, pockets, names)
}

func (m *MockInitSeriesInterface) ActiveSourceTitles(ctx context.Context, archiveId, seriesId int, pockets []domain.Pocket) ([]string, error) {
	if m.Impl.ActiveSourceTitles == nil {
		return nil, errNotImplemented
	}
	return m.Impl.ActiveSourceTitles(ctx, archiveId, seriesId, pockets)
}

func (m *MockInitSeriesInterface) PacksetSourceNames(ctx context.Context, packsetIds []int) ([]string, error) {
	if m.Impl.PacksetSourceNames == nil {
		return nil, errNotImplemented
	}
	return m.Impl.PacksetSourceNames(ctx, packsetIds)
}

func (m *MockInitSeriesInterface) Initialize(ctx context.Context, plan dbinitseries.Plan) error {
	if m.Impl.Initialize == nil {
		return errNotImplemented
	}
	return m.Impl.Initialize(ctx, plan)
}
