// internal/models/generated.go
package models

// GeneratedItem is the tournament-format schema produced by the item
// generator. The field set mirrors the JSON contract requested from the
// model; crafting_cost and the details cap are enforced after generation.
type GeneratedItem struct {
	// Metadata
	Name        string `json:"name"`
	Slot        string `json:"slot"`
	CasterLevel int    `json:"caster_level"`
	Price       int    `json:"price"` // gp
	Weight      string `json:"weight"`
	Rarity      string `json:"rarity"`   // Common, Uncommon, Rare, Unique
	Category    string `json:"category"` // Ring, Wondrous Item, Weapon, ...

	// Aura and school
	AuraIntensity string `json:"aura_intensity"` // Faint, Moderate, Strong
	School        string `json:"school"`

	// Flavour only, 2-4 sentences
	Description string `json:"description"`

	// Use / activation
	ActivationAction string `json:"activation_action"` // Swift, Standard, Move, Reaction
	UsesPerDay       string `json:"uses_per_day"`
	Duration         string `json:"duration"`
	SavingThrow      string `json:"saving_throw"`
	SpellResistance  string `json:"spell_resistance"`
	ReferencedSpell  string `json:"referenced_spell,omitempty"`

	// One-line mechanical summary
	Effect string `json:"effect"`

	// At most 3 atomic bullets
	Details []string `json:"details"`

	// Interactions
	BonusType string `json:"bonus_type,omitempty"`
	Stacking  string `json:"stacking"`
	RawTag    string `json:"raw_tag"` // RAW, RAI or HR

	// Construction
	CraftingRequirements string `json:"crafting_requirements"`
	CraftingCost         int    `json:"crafting_cost"` // price / 2, rounded down

	// Notes
	PlaytestNote  string `json:"playtest_note"`
	NarrativeHook string `json:"narrative_hook,omitempty"`
}
