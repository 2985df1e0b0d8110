// internal/models/catalog.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CatalogItem is one entry of the static magic item catalog.
// Only name, description and type carry meaning for search; the remaining
// known fields are kept typed for display, and any other key present in a
// source record survives round-trips through Aux.
type CatalogItem struct {
	Name        string
	Description string
	Type        string
	Rarity      string
	Price       string
	Weight      string
	Slot        string
	Aura        string
	CasterLevel string
	Source      string
	URL         string
	Aux         map[string]any
}

// catalogFieldOrder maps the known record keys to their struct fields.
var knownCatalogKeys = []string{
	"name", "description", "type", "rarity", "price",
	"weight", "slot", "aura", "cl", "source", "url",
}

// UnmarshalJSON accepts the open record shape of the scraped source data:
// known keys land in typed fields, everything else goes to Aux. Non-string
// values (the scraper emits the occasional bare number) are rendered as text.
func (ci *CatalogItem) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	raw := make(map[string]any)
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	fields := map[string]*string{
		"name":        &ci.Name,
		"description": &ci.Description,
		"type":        &ci.Type,
		"rarity":      &ci.Rarity,
		"price":       &ci.Price,
		"weight":      &ci.Weight,
		"slot":        &ci.Slot,
		"aura":        &ci.Aura,
		"cl":          &ci.CasterLevel,
		"source":      &ci.Source,
		"url":         &ci.URL,
	}

	for key, dst := range fields {
		if v, ok := raw[key]; ok {
			*dst = stringify(v)
			delete(raw, key)
		}
	}

	if len(raw) > 0 {
		ci.Aux = raw
	}
	return nil
}

// MarshalJSON restores the flat record shape the catalog file uses, so API
// responses look like the source records rather than a nested struct.
func (ci CatalogItem) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(ci.Aux)+len(knownCatalogKeys))
	for k, v := range ci.Aux {
		out[k] = v
	}

	setIfNotEmpty := func(key, val string) {
		if val != "" {
			out[key] = val
		}
	}

	out["name"] = ci.Name
	out["description"] = ci.Description
	setIfNotEmpty("type", ci.Type)
	setIfNotEmpty("rarity", ci.Rarity)
	setIfNotEmpty("price", ci.Price)
	setIfNotEmpty("weight", ci.Weight)
	setIfNotEmpty("slot", ci.Slot)
	setIfNotEmpty("aura", ci.Aura)
	setIfNotEmpty("cl", ci.CasterLevel)
	setIfNotEmpty("source", ci.Source)
	setIfNotEmpty("url", ci.URL)

	return json.Marshal(out)
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return ""
	case json.Number:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// CatalogStats is the derived read-only view over the loaded catalog.
type CatalogStats struct {
	TotalCount int          `json:"total_count"`
	SampleItem *CatalogItem `json:"sample_item"`
	Types      []string     `json:"types"`
}
