// internal/catalog/normalize.go
package catalog

import (
	"fmt"
	"net/url"

	"github.com/tbellini/arcanum/internal/models"
)

const (
	// The scraper that produced the catalog writes "N/A" for fields it could
	// not extract and "Unknown Item" when the item page had no usable title.
	absentValue     = "N/A"
	scraperFallback = "Unknown Item"

	fallbackName     = "Unnamed Item"
	unknownFieldText = "unknown"
)

// Query parameter keys that carry the item name in archive URLs. Matching is
// case-sensitive, as in the source data.
var nameParamKeys = []string{"ItemName", "FinalName"}

// normalizeItem guarantees a non-empty name and description on every record.
func normalizeItem(item *models.CatalogItem) {
	if item.Name == "" || item.Name == absentValue || item.Name == scraperFallback {
		if name := nameFromURL(item.URL); name != "" {
			item.Name = name
		} else {
			item.Name = fallbackName
		}
	}

	if item.Description == "" || item.Description == absentValue {
		item.Description = synthesizeDescription(item)
	}
}

// nameFromURL recovers the item name from an archive URL's query string.
// Values are percent-decoded with "+" read as a space.
func nameFromURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	values, err := url.ParseQuery(parsed.RawQuery)
	if err != nil {
		return ""
	}

	for _, key := range nameParamKeys {
		if vs, ok := values[key]; ok && len(vs) > 0 && vs[0] != "" {
			return vs[0]
		}
	}

	return ""
}

// synthesizeDescription builds a minimal description from the slot, aura and
// caster level fields so records without flavour text still render and match.
func synthesizeDescription(item *models.CatalogItem) string {
	return fmt.Sprintf("Slot: %s, Aura: %s, CL: %s",
		fieldOrUnknown(item.Slot),
		fieldOrUnknown(item.Aura),
		fieldOrUnknown(item.CasterLevel))
}

func fieldOrUnknown(value string) string {
	if value == "" || value == absentValue {
		return unknownFieldText
	}
	return value
}
