// Package regions caches the map regions and answers access checks.
package regions

import (
	"context"
	"sync"

	"github.com/traitquest/traitquest/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Source is the REST surface the cache reads from.
type Source interface {
	Regions(ctx context.Context) ([]domain.Region, error)
	CheckAccess(ctx context.Context, regionID string) (*domain.AccessResult, error)
}

// Store is the region cache.
type Store struct {
	src    Source
	logger *zap.Logger
	group  singleflight.Group

	mu      sync.RWMutex
	regions []domain.Region
	err     error
}

// NewStore creates an empty cache over src.
func NewStore(src Source, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{src: src, logger: logger.Named("regions")}
}

// FetchRegions loads the regions unless they are already cached. force
// refetches. Concurrent callers share one request.
func (s *Store) FetchRegions(ctx context.Context, force bool) error {
	if !force && s.Loaded() {
		return nil
	}

	_, err, shared := s.group.Do("regions", func() (any, error) {
		regions, err := s.src.Regions(ctx)
		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			s.err = err
			return nil, err
		}
		for i := range regions {
			regions[i] = WithVisuals(regions[i])
		}
		s.regions = regions
		s.err = nil
		return nil, nil
	})
	if err != nil {
		s.logger.Warn("fetching regions", zap.Error(err), zap.Bool("shared", shared))
	}
	return err
}

// Loaded reports whether a region list is cached.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.regions) > 0
}

// Regions returns a copy of the cached regions.
func (s *Store) Regions() []domain.Region {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Region(nil), s.regions...)
}

// Region returns the cached region with id.
func (s *Store) Region(id string) (domain.Region, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.regions {
		if r.ID == id {
			return r, true
		}
	}
	return domain.Region{}, false
}

// Err is the error of the last fetch, or nil.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// CheckAccess asks whether regionID may be entered. Failures are reported
// as a locked result rather than an error.
func (s *Store) CheckAccess(ctx context.Context, regionID string) domain.AccessResult {
	res, err := s.src.CheckAccess(ctx, regionID)
	if err != nil {
		s.logger.Warn("checking access", zap.String("region_id", regionID), zap.Error(err))
		return domain.AccessResult{
			CanEnter: false,
			Message:  err.Error(),
			Status:   domain.RegionLocked,
		}
	}
	return *res
}
