// internal/models/features.go
package models

// QueryFeatures is the structured output of the search query analysis call.
// All three lists may be empty; an all-empty set matches nothing.
type QueryFeatures struct {
	Keywords  []string `json:"keywords"`
	ItemTypes []string `json:"item_types"`
	Effects   []string `json:"effects"`
}
