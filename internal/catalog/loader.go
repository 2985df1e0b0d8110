// internal/catalog/loader.go
package catalog

import (
	"encoding/json"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/tbellini/arcanum/internal/apperrors"
	"github.com/tbellini/arcanum/internal/models"
)

// Service loads the static magic item catalog and serves it from a
// process-wide cache. The cache is populated once under the write lock, so
// concurrent first loads cannot observe a partially filled slice; entries
// are treated as immutable after loading.
type Service struct {
	path   string
	logger *zap.SugaredLogger

	mu     sync.RWMutex
	items  []models.CatalogItem
	loaded bool
}

// NewService creates a catalog service reading from the given JSON file.
func NewService(path string, logger *zap.SugaredLogger) *Service {
	return &Service{
		path:   path,
		logger: logger,
	}
}

// Load returns the normalized catalog, reading and parsing the source file
// on first use. Subsequent calls return the cached slice until Invalidate.
func (s *Service) Load() ([]models.CatalogItem, error) {
	s.mu.RLock()
	if s.loaded {
		items := s.items
		s.mu.RUnlock()
		return items, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return s.items, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, apperrors.NewDataSourceError("failed to read item catalog", err)
	}

	var items []models.CatalogItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, apperrors.NewDataSourceError("failed to parse item catalog", err)
	}

	for i := range items {
		normalizeItem(&items[i])
	}

	s.items = items
	s.loaded = true
	s.logger.Infow("catalog loaded", "items", len(items), "path", s.path)

	return items, nil
}

// Invalidate discards the cached catalog; the next Load re-reads the source.
func (s *Service) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.loaded = false
	s.logger.Infow("catalog cache invalidated", "path", s.path)
}

// Stats returns the derived read-only view over the loaded catalog.
func (s *Service) Stats() (models.CatalogStats, error) {
	items, err := s.Load()
	if err != nil {
		return models.CatalogStats{}, err
	}

	stats := models.CatalogStats{
		TotalCount: len(items),
		Types:      distinctTypes(items, 10),
	}
	if len(items) > 0 {
		stats.SampleItem = &items[0]
	}

	return stats, nil
}

// distinctTypes returns up to limit distinct non-empty type values, in order
// of first occurrence.
func distinctTypes(items []models.CatalogItem, limit int) []string {
	seen := make(map[string]bool)
	types := make([]string, 0, limit)

	for _, item := range items {
		if item.Type == "" || seen[item.Type] {
			continue
		}
		seen[item.Type] = true
		types = append(types, item.Type)
		if len(types) == limit {
			break
		}
	}

	return types
}
