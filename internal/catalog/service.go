// Package catalog serves the provider's service list from cache and the
// static per-category listings shown to members.
package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"smmwallet/internal/domain"
	"smmwallet/pkg/cache"
	"smmwallet/pkg/errors"
	"smmwallet/pkg/logger"
)

const sharedKey = "catalog:services"

// Source fetches the full catalog upstream; *provider.Client satisfies it.
type Source interface {
	ListServices(ctx context.Context) ([]domain.CatalogEntry, error)
}

// SharedCache is a cross-process cache such as *cache.RedisCache.
// Get returns cache.ErrMiss for absent keys.
type SharedCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Service is a read-through cache over Source. The in-process copy is
// consulted first, then the shared cache when one is configured.
type Service struct {
	source Source
	shared SharedCache
	ttl    time.Duration
	logger logger.Logger
	now    func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	entries   []domain.CatalogEntry
	byID      map[string]domain.CatalogEntry
	expiresAt time.Time
}

// NewService builds a catalog. shared may be nil.
func NewService(source Source, shared SharedCache, ttl time.Duration, log logger.Logger) *Service {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{
		source: source,
		shared: shared,
		ttl:    ttl,
		logger: log,
		now:    time.Now,
	}
}

// Lookup returns the entry for serviceID, or ErrInvalidService when the
// provider does not list it.
func (s *Service) Lookup(ctx context.Context, serviceID string) (*domain.CatalogEntry, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	entry, ok := s.byID[strings.TrimSpace(serviceID)]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.ErrInvalidService
	}
	return &entry, nil
}

// List returns entries whose name or category contains query, ignoring
// case. An empty query returns everything.
func (s *Service) List(ctx context.Context, query string) ([]domain.CatalogEntry, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	query = strings.ToLower(strings.TrimSpace(query))

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CatalogEntry, 0, len(s.entries))
	for _, e := range s.entries {
		if query == "" ||
			strings.Contains(strings.ToLower(e.Name), query) ||
			strings.Contains(strings.ToLower(e.Category), query) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Invalidate drops both cache layers.
func (s *Service) Invalidate(ctx context.Context) error {
	s.mu.Lock()
	s.expiresAt = time.Time{}
	s.mu.Unlock()
	if s.shared != nil {
		return s.shared.Delete(ctx, sharedKey)
	}
	return nil
}

func (s *Service) fresh() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byID != nil && s.now().Before(s.expiresAt)
}

func (s *Service) ensure(ctx context.Context) error {
	if s.fresh() {
		return nil
	}

	_, err, _ := s.group.Do(sharedKey, func() (interface{}, error) {
		if s.fresh() {
			return nil, nil
		}
		entries, err := s.load(ctx)
		if err != nil {
			return nil, err
		}
		s.store(entries)
		return nil, nil
	})
	return err
}

func (s *Service) load(ctx context.Context) ([]domain.CatalogEntry, error) {
	if s.shared != nil {
		var entries []domain.CatalogEntry
		err := s.shared.Get(ctx, sharedKey, &entries)
		if err == nil {
			return entries, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("Shared catalog cache unavailable", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	entries, err := s.source.ListServices(ctx)
	if err != nil {
		s.logger.Error("Failed to fetch catalog", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}

	if s.shared != nil {
		if err := s.shared.Set(ctx, sharedKey, entries, s.ttl); err != nil {
			s.logger.Warn("Failed to populate shared catalog cache", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	s.logger.Info("Catalog refreshed", map[string]interface{}{
		"services": len(entries),
	})
	return entries, nil
}

func (s *Service) store(entries []domain.CatalogEntry) {
	sorted := make([]domain.CatalogEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Category != sorted[j].Category {
			return sorted[i].Category < sorted[j].Category
		}
		return sorted[i].Name < sorted[j].Name
	})

	byID := make(map[string]domain.CatalogEntry, len(sorted))
	for _, e := range sorted {
		byID[e.ServiceID] = e
	}

	s.mu.Lock()
	s.entries = sorted
	s.byID = byID
	s.expiresAt = s.now().Add(s.ttl)
	s.mu.Unlock()
}
