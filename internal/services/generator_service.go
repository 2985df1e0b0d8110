// internal/services/generator_service.go
package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tbellini/arcanum/internal/apperrors"
	"github.com/tbellini/arcanum/internal/llm"
	"github.com/tbellini/arcanum/internal/models"
	"github.com/tbellini/arcanum/internal/utils"
)

// generatorSystemPrompt encodes the Pathfinder 1E item creation rules the
// model must follow. The pricing formulas and aura thresholds come from the
// Core Rulebook tables.
const generatorSystemPrompt = `You are an expert Pathfinder 1E Game Master specialized in creating balanced magic items that conform to the official Paizo rules.

MANDATORY RULES:
1. Official Paizo PF1e content only (no third-party material)
2. Prices follow the official Core Rulebook tables
3. Crafting cost = price / 2 (rounded down)
4. Aura and caster level derive from the primary spell
5. Description: flavour only (2-4 sentences), NO rules text
6. Details: at most 3 atomic, specific bullets
7. Playtest note is mandatory (1 line on risks/abuse)

PRICING FORMULAS:
- Spell 1/day: spell level x CL x 1,800 gp
- Spell 3/day: spell level x CL x 5,400 gp
- Spell unlimited: spell level x CL x 2,000 gp x 4
- Flat +X bonus: bonus^2 x 1,000 gp (competence) or bonus^2 x 2,000 gp (others)
- Save DC: 10 + spell level + ability modifier (min +3)
- Minimum CL: spell level x 2 - 1 (e.g. fireball -> CL 5)

AURA (based on CL):
- Faint: CL 1-5
- Moderate: CL 6-11
- Strong: CL 12+

BONUS TYPES (always specify):
competence, circumstance, dodge, insight, enhancement, luck, sacred/profane, morale, resistance, deflection

RARITY:
- Common: widespread, low-medium impact, price < 10,000 gp
- Uncommon: thematic/regional, marked utility, 10,000-50,000 gp
- Rare: specific conditions or rituals, possible combos, 50,000-200,000 gp
- Unique: narrative piece, often house-ruled, > 200,000 gp

REFERENCE EXAMPLES:
- Ring of Protection +1: 2,000 gp, CL 5, Abjuration, deflection bonus
- Ring of Feather Falling: 2,200 gp, CL 1, Transmutation, unlimited
- Cloak of Resistance +1: 1,000 gp, CL 5, Abjuration, resistance bonus
- Wand of Fireball (CL 5): 11,250 gp, 50 charges, CL 5

BALANCE:
- Avoid overly strong always-on effects
- Limit uses/day for powerful effects
- Consider the activation action (Standard = more balanced)
- Saves and SR must be consistent with the base spell
- Details must spell out limitations and interactions`

// generatorUserTemplate requests the full tournament-format JSON contract.
const generatorUserTemplate = `Create a Pathfinder 1E magic item based on: %q

Provide the item as JSON with ALL of the following fields:

{
  "name": "Evocative item name",
  "slot": "Official PF slot (ring, head, neck, ...) or —",
  "caster_level": integer (CL),
  "price": integer (price in gp),
  "weight": "weight in lb or —",
  "rarity": "Common" | "Uncommon" | "Rare" | "Unique",
  "category": "Ring, Wondrous Item, Weapon, Armor, ...",
  "aura_intensity": "Faint" | "Moderate" | "Strong",
  "school": "School of magic",
  "description": "2-4 evocative sentences, flavour text ONLY",
  "activation_action": "Swift, Standard, Move, or Reaction",
  "uses_per_day": "1/day, 3/day, unlimited, ...",
  "duration": "Duration of the effect",
  "saving_throw": "Required save (e.g. Will DC 15) or —",
  "spell_resistance": "Yes" | "No",
  "referenced_spell": "Reference spell with CL (e.g. fireball, CL 7)",
  "effect": "1 line, terse summary of the mechanical effect",
  "details": ["bullet 1", "bullet 2", "bullet 3"] (max 3 atomic bullets),
  "bonus_type": "Bonus type (competence, circumstance, ...) or empty string",
  "stacking": "Stacking rules",
  "raw_tag": "RAW" | "RAI" | "HR",
  "crafting_requirements": "Required feats and spells",
  "crafting_cost": integer (= price / 2),
  "playtest_note": "1 line on risks/abuse/watch-outs",
  "narrative_hook": "1 line on where/how it is found (optional, may be empty)"
}

Respond ONLY with the JSON, no other text.`

// GeneratorService creates new tournament-format magic items.
type GeneratorService struct {
	llm     *LLMService
	logger  *zap.SugaredLogger
	metrics *utils.MetricsCollector
}

// NewGeneratorService wires the generator to the shared LLM service.
func NewGeneratorService(llmService *LLMService, logger *zap.SugaredLogger) *GeneratorService {
	return &GeneratorService{
		llm:     llmService,
		logger:  logger,
		metrics: utils.GetMetrics(),
	}
}

// GenerateItem asks the model for a tournament-format item and enforces the
// post-generation invariants on the result. The model call is not retried.
func (s *GeneratorService) GenerateItem(ctx context.Context, prompt string) (*models.GeneratedItem, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, apperrors.NewValidationError("prompt must not be empty", nil)
	}

	var item models.GeneratedItem
	err := s.metrics.Time("generate_item", func() error {
		return s.llm.CreateStructuredCompletion(ctx,
			fmt.Sprintf(generatorUserTemplate, prompt),
			generatorSystemPrompt,
			&llm.ResponseFormat{Type: "json_object"},
			&item)
	})
	if err != nil {
		s.metrics.Inc("generate_item_errors")
		return nil, err
	}

	costFixed, detailsTruncated := validateGeneratedItem(&item)
	if costFixed || detailsTruncated {
		s.logger.Infow("corrected generated item",
			"item", item.Name,
			"crafting_cost_fixed", costFixed,
			"details_truncated", detailsTruncated)
	}

	s.metrics.Inc("items_generated")
	return &item, nil
}

// validateGeneratedItem applies the invariants the model occasionally drifts
// from: crafting cost is always floor(price/2) and the detail list holds at
// most 3 entries. Drift is corrected silently, never reported as an error.
func validateGeneratedItem(item *models.GeneratedItem) (costFixed, detailsTruncated bool) {
	if expected := item.Price / 2; item.CraftingCost != expected {
		item.CraftingCost = expected
		costFixed = true
	}

	if len(item.Details) > 3 {
		item.Details = item.Details[:3]
		detailsTruncated = true
	}

	return costFixed, detailsTruncated
}
