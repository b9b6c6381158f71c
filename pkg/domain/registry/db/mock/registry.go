// this package provide "mock" implementation of database for testing.
package mocks

import (
	"context"
	"errors"

	"github.com/granary-project/granary/pkg/domain"
)

type MockRegistryInterface struct {
	Impl struct {
		GetArchive           func(context.Context, int) (domain.Archive, error)
		FindArchive          func(context.Context, string, string) (domain.Archive, error)
		GetSeries            func(context.Context, int) (domain.Series, error)
		FindSeries           func(context.Context, string, string) (domain.Series, error)
		SeriesOfDistribution func(context.Context, string) ([]domain.Series, error)
		ArchSerieses         func(context.Context, int) ([]domain.ArchSeries, error)
		PermittedComponents  func(context.Context, int) ([]string, error)
		Sections             func(context.Context) ([]string, error)
		PublisherConfig      func(context.Context, string) (domain.PublisherConfig, error)
	}
}

func NewMockRegistryInterface() *MockRegistryInterface {
	return &MockRegistryInterface{}
}

var errNotImplemented = errors.New("[MOCK] not implemented")

func (m *MockRegistryInterface) GetArchive(ctx context.Context, archiveId int) (domain.Archive, error) {
	if m.Impl.GetArchive == nil {
		return domain.Archive{}, errNotImplemented
	}
	return m.Impl.GetArchive(ctx, archiveId)
}

func (m *MockRegistryInterface) FindArchive(ctx context.Context, distribution string, name string) (domain.Archive, error) {
	if m.Impl.FindArchive == nil {
		return domain.Archive{}, errNotImplemented
	}
	return m.Impl.FindArchive(ctx, distribution, name)
}

func (m *MockRegistryInterface) GetSeries(ctx context.Context, seriesId int) (domain.Series, error) {
	if m.Impl.GetSeries == nil {
		return domain.Series{}, errNotImplemented
	}
	return m.Impl.GetSeries(ctx, seriesId)
}

func (m *MockRegistryInterface) FindSeries(ctx context.Context, distribution string, name string) (domain.Series, error) {
	if m.Impl.FindSeries == nil {
		return domain.Series{}, errNotImplemented
	}
	return m.Impl.FindSeries(ctx, distribution, name)
}

func (m *MockRegistryInterface) SeriesOfDistribution(ctx context.Context, distribution string) ([]domain.Series, error) {
	if m.Impl.SeriesOfDistribution == nil {
		return nil, errNotImplemented
	}
	return m.Impl.SeriesOfDistribution(ctx, distribution)
}

func (m *MockRegistryInterface) ArchSerieses(ctx context.Context, seriesId int) ([]domain.ArchSeries, error) {
	if m.Impl.ArchSerieses == nil {
		return nil, errNotImplemented
	}
	return m.Impl.ArchSerieses(ctx, seriesId)
}

func (m *MockRegistryInterface) PermittedComponents(ctx context.Context, seriesId int) ([]string, error) {
	if m.Impl.PermittedComponents == nil {
		return nil, errNotImplemented
	}
	return m.Impl.PermittedComponents(ctx, seriesId)
}

func (m *MockRegistryInterface) Sections(ctx context.Context) ([]string, error) {
	if m.Impl.Sections == nil {
		return nil, errNotImplemented
	}
	return m.Impl.Sections(ctx)
}

func (m *MockRegistryInterface) PublisherConfig(ctx context.Context, distribution string) (domain.PublisherConfig, error) {
	if m.Impl.PublisherConfig == nil {
		return domain.PublisherConfig{}, errNotImplemented
	}
	return m.Impl.PublisherConfig(ctx, distribution)
}
