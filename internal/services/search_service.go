// internal/services/search_service.go
package services

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/tbellini/arcanum/internal/catalog"
	"github.com/tbellini/arcanum/internal/llm"
	"github.com/tbellini/arcanum/internal/models"
	"github.com/tbellini/arcanum/internal/utils"
)

const analysisSystemPrompt = `You are a Pathfinder 1E expert. Analyze search queries and extract key characteristics for finding magic items.`

const analysisUserTemplate = `Analyze this search and extract its characteristics: %q

Provide a JSON object with:
- keywords: array of important keywords
- item_types: array of likely item types (weapon, armor, ring, wondrous, ...)
- effects: array of desired effects or properties

Example: {"keywords": ["fire", "damage"], "item_types": ["ring", "weapon"], "effects": ["fireball", "fire damage"]}

Respond ONLY with the JSON.`

// Fixed relevance weights. Type matches rank highest, then effects, then
// plain keywords; the values are a product requirement, not a tunable.
const (
	keywordWeight  = 3
	itemTypeWeight = 5
	effectWeight   = 4
)

// SearchService answers catalog searches and random item draws.
type SearchService struct {
	llm     *LLMService
	catalog *catalog.Service
	logger  *zap.SugaredLogger
	metrics *utils.MetricsCollector
}

// NewSearchService wires the search path to the LLM and catalog services.
func NewSearchService(llmService *LLMService, catalogService *catalog.Service, logger *zap.SugaredLogger) *SearchService {
	return &SearchService{
		llm:     llmService,
		catalog: catalogService,
		logger:  logger,
		metrics: utils.GetMetrics(),
	}
}

// ExtractFeatures turns a free-text query into structured search features
// with a single model call. No retry; a failed call fails the search.
func (s *SearchService) ExtractFeatures(ctx context.Context, query string) (models.QueryFeatures, error) {
	var features models.QueryFeatures
	err := s.llm.CreateStructuredCompletion(ctx,
		fmt.Sprintf(analysisUserTemplate, query),
		analysisSystemPrompt,
		&llm.ResponseFormat{Type: "json_object"},
		&features)
	if err != nil {
		return models.QueryFeatures{}, err
	}
	return features, nil
}

// SearchItems scores the catalog against the extracted query features and
// returns at most limit items, best first. An empty result is a valid
// outcome, not an error.
func (s *SearchService) SearchItems(ctx context.Context, query string, limit int) ([]models.CatalogItem, error) {
	items, err := s.catalog.Load()
	if err != nil {
		s.metrics.Inc("search_errors")
		return nil, err
	}

	var results []models.CatalogItem
	err = s.metrics.Time("search_items", func() error {
		features, err := s.ExtractFeatures(ctx, query)
		if err != nil {
			return err
		}

		s.logger.Debugw("query features extracted",
			"keywords", features.Keywords,
			"item_types", features.ItemTypes,
			"effects", features.Effects)

		results = scoreAndRank(features, items, limit)
		return nil
	})
	if err != nil {
		s.metrics.Inc("search_errors")
		return nil, err
	}

	s.metrics.Inc("searches")
	return results, nil
}

// RandomItems returns min(count, catalog size) distinct items in random
// order. The cached catalog is never reordered; the shuffle works on a copy.
func (s *SearchService) RandomItems(count int) ([]models.CatalogItem, error) {
	items, err := s.catalog.Load()
	if err != nil {
		return nil, err
	}

	shuffled := make([]models.CatalogItem, len(items))
	copy(shuffled, items)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	if count > len(shuffled) {
		count = len(shuffled)
	}

	s.metrics.Inc("random_draws")
	return shuffled[:count], nil
}

type scoredItem struct {
	item  models.CatalogItem
	score int
}

// scoreAndRank computes the per-item relevance score and returns the top
// limit items with a positive score, ordered by descending score. The sort
// is stable, so ties keep their catalog order.
func scoreAndRank(features models.QueryFeatures, items []models.CatalogItem, limit int) []models.CatalogItem {
	scored := make([]scoredItem, 0, len(items))

	for _, item := range items {
		if score := scoreItem(item, features); score > 0 {
			scored = append(scored, scoredItem{item: item, score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	if limit < len(scored) {
		scored = scored[:limit]
	}

	results := make([]models.CatalogItem, len(scored))
	for i, s := range scored {
		results[i] = s.item
	}
	return results
}

// scoreItem sums the fixed weights over substring matches: keywords and
// effects match against the lowercased name+description, item types against
// the lowercased type field. A zero score means no match at all.
func scoreItem(item models.CatalogItem, features models.QueryFeatures) int {
	itemText := strings.ToLower(item.Name + " " + item.Description)
	itemType := strings.ToLower(item.Type)

	score := 0

	for _, keyword := range features.Keywords {
		if keyword != "" && strings.Contains(itemText, strings.ToLower(keyword)) {
			score += keywordWeight
		}
	}

	for _, t := range features.ItemTypes {
		if t != "" && item.Type != "" && strings.Contains(itemType, strings.ToLower(t)) {
			score += itemTypeWeight
		}
	}

	for _, effect := range features.Effects {
		if effect != "" && strings.Contains(itemText, strings.ToLower(effect)) {
			score += effectWeight
		}
	}

	return score
}
