package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"rirblocks/internal/config"
	"rirblocks/internal/feed"
	"rirblocks/internal/model"
)

type Store interface {
	Load(ctx context.Context, registry string) (model.AllocationIndex, time.Duration, error)
	Save(ctx context.Context, registry string, index model.AllocationIndex) error
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// AllocationService answers "which blocks does registry R report for
// country C" by resolving a per-registry index: cached when fresh,
// refetched when stale or absent, with the last cached index as the
// fallback when a refresh fails.
type AllocationService struct {
	store   Store
	fetcher Fetcher
	builder *feed.Builder
	config  *config.Config
	logger  *zap.Logger
}

func NewAllocationService(
	store Store,
	fetcher Fetcher,
	builder *feed.Builder,
	config *config.Config,
	logger *zap.Logger,
) *AllocationService {
	return &AllocationService{
		store:   store,
		fetcher: fetcher,
		builder: builder,
		config:  config,
		logger:  logger,
	}
}

// AllBlocks returns the full country -> CIDR list mapping one registry
// reports for one address family.
func (s *AllocationService) AllBlocks(ctx context.Context, registry, family string) (map[string][]string, error) {
	registry, fam, _, err := s.validate(registry, family, "")
	if err != nil {
		return nil, err
	}

	index, err := s.resolveIndex(ctx, registry)
	if err != nil {
		return nil, err
	}

	return index.Countries(fam), nil
}

// CountryBlocks returns the ordered CIDR list one registry reports for
// one country and family. An unknown country yields an empty list.
func (s *AllocationService) CountryBlocks(ctx context.Context, registry, family, country string) ([]string, error) {
	registry, fam, country, err := s.validate(registry, family, country)
	if err != nil {
		return nil, err
	}

	index, err := s.resolveIndex(ctx, registry)
	if err != nil {
		return nil, err
	}

	blocks := index.Blocks(fam, country)
	if blocks == nil {
		blocks = []string{}
	}
	return blocks, nil
}

// validate normalizes the query triple. Any failure here is terminal and
// happens before any network or disk I/O.
func (s *AllocationService) validate(registry, family, country string) (string, model.Family, string, error) {
	registry = strings.ToLower(registry)
	if s.config.FeedURL(registry) == "" {
		return "", "", "", fmt.Errorf("%w: unknown registry %q", model.ErrInvalidArgument, registry)
	}

	fam, err := model.ParseFamily(family)
	if err != nil {
		return "", "", "", err
	}

	if country != "" {
		if !model.IsCountryCode(country) {
			return "", "", "", fmt.Errorf("%w: country code must be two letters, got %q", model.ErrInvalidArgument, country)
		}
		country = strings.ToUpper(country)
	}

	return registry, fam, country, nil
}

// resolveIndex yields the index that serves this query: the cached one
// when fresh, otherwise a freshly fetched one, otherwise the stale cached
// one as a fallback.
func (s *AllocationService) resolveIndex(ctx context.Context, registry string) (model.AllocationIndex, error) {
	cached, age, err := s.store.Load(ctx, registry)
	if err != nil {
		if errors.Is(err, model.ErrCacheCorrupt) {
			return nil, err
		}
		if !errors.Is(err, model.ErrCacheMiss) {
			// Unreadable store counts as corrupt territory, not a miss:
			// re-fetching over it could mask a systemic problem.
			return nil, err
		}
		cached = nil
	}

	if cached != nil && age <= s.config.CacheTTL {
		s.logger.Debug("serving fresh cached index",
			zap.String("registry", registry),
			zap.Duration("age", age))
		return cached, nil
	}

	index, err := s.refresh(ctx, registry)
	if err != nil {
		if cached != nil {
			s.logger.Warn("feed refresh failed, serving stale cached index",
				zap.String("registry", registry),
				zap.Duration("age", age),
				zap.Error(err))
			return cached, nil
		}
		return nil, fmt.Errorf("%w: %s: %v", model.ErrFetchFailed, registry, err)
	}

	return index, nil
}

func (s *AllocationService) refresh(ctx context.Context, registry string) (model.AllocationIndex, error) {
	startTime := time.Now()
	url := s.config.FeedURL(registry)

	body, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	index, err := s.builder.Build(body)
	if err != nil {
		return nil, err
	}

	// A write failure costs persistence, not this query: the freshly
	// built index still serves the caller.
	if err := s.store.Save(ctx, registry, index); err != nil {
		s.logger.Error("failed to save cache entry",
			zap.String("registry", registry),
			zap.Error(err))
	}

	s.logger.Info("Refreshed allocation index",
		zap.String("registry", registry),
		zap.String("url", url),
		zap.Duration("duration", time.Since(startTime)))

	return index, nil
}
