// internal/services/search_service_test.go
package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tbellini/arcanum/internal/apperrors"
	"github.com/tbellini/arcanum/internal/catalog"
	"github.com/tbellini/arcanum/internal/models"
)

const searchTestCatalog = `[
	{"name": "Ring of Fire Resistance", "description": "Protects the wearer from flames.", "type": "Ring"},
	{"name": "Flametongue", "description": "A sword wreathed in fire.", "type": "Weapon"},
	{"name": "Boots of Striding", "description": "Increases movement speed.", "type": "Wondrous Item"},
	{"name": "Ring of Invisibility", "description": "Renders the wearer unseen.", "type": "Ring"}
]`

func newTestSearchService(t *testing.T, provider *stubProvider, catalogJSON string) *SearchService {
	t.Helper()

	path := filepath.Join(t.TempDir(), "items.json")
	require.NoError(t, os.WriteFile(path, []byte(catalogJSON), 0644))

	logger := zap.NewNop().Sugar()
	return NewSearchService(newTestLLMService(provider), catalog.NewService(path, logger), logger)
}

func TestSearchItemsRanksByScore(t *testing.T) {
	// keyword "fire" (+3) hits both fire items; type "ring" (+5) favours the
	// ring; effect "fire resistance" (+4) favours it further.
	provider := &stubProvider{responses: []string{
		`{"keywords": ["fire"], "item_types": ["ring"], "effects": ["flames"]}`,
	}}
	svc := newTestSearchService(t, provider, searchTestCatalog)

	results, err := svc.SearchItems(context.Background(), "a fire ring", 5)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// 3+5+4, 5 and 3 points respectively.
	assert.Equal(t, "Ring of Fire Resistance", results[0].Name)
	assert.Equal(t, "Ring of Invisibility", results[1].Name)
	assert.Equal(t, "Flametongue", results[2].Name)
}

func TestSearchItemsRespectsLimit(t *testing.T) {
	provider := &stubProvider{responses: []string{
		`{"keywords": ["ring", "fire"], "item_types": [], "effects": []}`,
	}}
	svc := newTestSearchService(t, provider, searchTestCatalog)

	results, err := svc.SearchItems(context.Background(), "rings", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearchItemsNoMatchesIsEmptySuccess(t *testing.T) {
	provider := &stubProvider{responses: []string{
		`{"keywords": ["frostbrand"], "item_types": ["rod"], "effects": ["cold immunity"]}`,
	}}
	svc := newTestSearchService(t, provider, searchTestCatalog)

	results, err := svc.SearchItems(context.Background(), "cold rod", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchItemsCatalogFailure(t *testing.T) {
	provider := &stubProvider{responses: []string{`{"keywords": ["x"]}`}}
	logger := zap.NewNop().Sugar()
	svc := NewSearchService(
		newTestLLMService(provider),
		catalog.NewService(filepath.Join(t.TempDir(), "missing.json"), logger),
		logger)

	_, err := svc.SearchItems(context.Background(), "anything", 5)
	require.Error(t, err)
	assert.True(t, apperrors.IsDataSourceError(err))
	assert.Equal(t, 0, provider.calls)
}

func TestSearchItemsExtractionFailure(t *testing.T) {
	provider := &stubProvider{responses: []string{"not json at all"}}
	svc := newTestSearchService(t, provider, searchTestCatalog)

	_, err := svc.SearchItems(context.Background(), "anything", 5)
	require.Error(t, err)
	assert.True(t, apperrors.IsResponseFormatError(err))
}

func TestScoreItem(t *testing.T) {
	item := models.CatalogItem{
		Name:        "Ring of Fire Resistance",
		Description: "Protects the wearer from flames.",
		Type:        "Ring",
	}

	tests := []struct {
		name     string
		features models.QueryFeatures
		want     int
	}{
		{
			name:     "keyword match in name",
			features: models.QueryFeatures{Keywords: []string{"fire"}},
			want:     3,
		},
		{
			name:     "keyword match in description",
			features: models.QueryFeatures{Keywords: []string{"flames"}},
			want:     3,
		},
		{
			name:     "type match",
			features: models.QueryFeatures{ItemTypes: []string{"ring"}},
			want:     5,
		},
		{
			name:     "effect match",
			features: models.QueryFeatures{Effects: []string{"protects"}},
			want:     4,
		},
		{
			name: "all three stack",
			features: models.QueryFeatures{
				Keywords:  []string{"fire"},
				ItemTypes: []string{"Ring"},
				Effects:   []string{"flames"},
			},
			want: 12,
		},
		{
			name:     "case insensitive",
			features: models.QueryFeatures{Keywords: []string{"FIRE"}},
			want:     3,
		},
		{
			name:     "empty feature strings ignored",
			features: models.QueryFeatures{Keywords: []string{""}, ItemTypes: []string{""}, Effects: []string{""}},
			want:     0,
		},
		{
			name:     "no match",
			features: models.QueryFeatures{Keywords: []string{"frost"}},
			want:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scoreItem(item, tt.features))
		})
	}
}

func TestScoreItemEmptyTypeNeverMatches(t *testing.T) {
	item := models.CatalogItem{Name: "Mystery Object", Description: "Odd.", Type: ""}
	features := models.QueryFeatures{ItemTypes: []string{"ring", ""}}
	assert.Equal(t, 0, scoreItem(item, features))
}

func TestScoreAndRankStableOnTies(t *testing.T) {
	items := []models.CatalogItem{
		{Name: "Alpha Ring", Description: "d", Type: "Ring"},
		{Name: "Beta Ring", Description: "d", Type: "Ring"},
		{Name: "Gamma Ring", Description: "d", Type: "Ring"},
	}
	features := models.QueryFeatures{ItemTypes: []string{"ring"}}

	results := scoreAndRank(features, items, 10)
	require.Len(t, results, 3)
	assert.Equal(t, "Alpha Ring", results[0].Name)
	assert.Equal(t, "Beta Ring", results[1].Name)
	assert.Equal(t, "Gamma Ring", results[2].Name)
}

func TestRandomItemsReturnsDistinctItems(t *testing.T) {
	svc := newTestSearchService(t, &stubProvider{}, searchTestCatalog)

	items, err := svc.RandomItems(3)
	require.NoError(t, err)
	require.Len(t, items, 3)

	seen := make(map[string]bool)
	for _, item := range items {
		assert.False(t, seen[item.Name], "item %q returned twice", item.Name)
		seen[item.Name] = true
	}
}

func TestRandomItemsCountAboveCatalogSize(t *testing.T) {
	svc := newTestSearchService(t, &stubProvider{}, searchTestCatalog)

	items, err := svc.RandomItems(50)
	require.NoError(t, err)
	assert.Len(t, items, 4)
}

func TestRandomItemsDoesNotReorderCatalog(t *testing.T) {
	svc := newTestSearchService(t, &stubProvider{}, searchTestCatalog)

	before, err := svc.catalog.Load()
	require.NoError(t, err)
	first := before[0].Name

	for i := 0; i < 10; i++ {
		_, err := svc.RandomItems(4)
		require.NoError(t, err)
	}

	after, err := svc.catalog.Load()
	require.NoError(t, err)
	assert.Equal(t, first, after[0].Name)
}
