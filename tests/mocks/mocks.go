package mocks

import (
	"context"
	"time"

	"rirblocks/internal/model"
)

type MockStore struct {
	LoadFunc func(ctx context.Context, registry string) (model.AllocationIndex, time.Duration, error)
	SaveFunc func(ctx context.Context, registry string, index model.AllocationIndex) error
}

func (m *MockStore) Load(ctx context.Context, registry string) (model.AllocationIndex, time.Duration, error) {
	return m.LoadFunc(ctx, registry)
}

func (m *MockStore) Save(ctx context.Context, registry string, index model.AllocationIndex) error {
	return m.SaveFunc(ctx, registry, index)
}

type MockFetcher struct {
	FetchFunc func(ctx context.Context, url string) ([]byte, error)
}

func (m *MockFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	return m.FetchFunc(ctx, url)
}
