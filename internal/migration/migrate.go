// Package migration upgrades a persisted watchlist document of any earlier
// schema to the current one. It never fails: unusable fragments are dropped and
// anything missing falls back to the default document.
package migration

import (
	"bytes"
	"encoding/json"

	"TradeInfo/internal/domain/models"
)

// CurrentVersion is the schema version written alongside every saved document.
const CurrentVersion = 4

// Shape is the structural variant detected in a stored document.
type Shape int

const (
	// ShapeUnknown is anything that is not a JSON object, or an object with neither list field.
	ShapeUnknown Shape = iota
	// ShapeLegacy is the pre-category layout: a flat "watchlist" array.
	ShapeLegacy
	// ShapeCategorized is the current layout with a "categories" field.
	ShapeCategorized
)

func (s Shape) String() string {
	switch s {
	case ShapeLegacy:
		return "legacy"
	case ShapeCategorized:
		return "categorized"
	default:
		return "unknown"
	}
}

type rawDoc = map[string]any

// step upgrades documents stored with a version lower than below.
type step struct {
	name  string
	below int
	apply func(rawDoc) rawDoc
}

var steps = []step{
	{name: "watchlist_to_categories", below: 4, apply: upgradeLegacy},
}

// Result describes what a migration run did.
type Result struct {
	Document models.Document
	Shape    Shape
	Version  int
	Applied  []string
}

// Migrate returns the current-schema document for a stored state and its version tag.
func Migrate(state json.RawMessage, version int) models.Document {
	return Run(state, version).Document
}

// Run is Migrate with a report of the detected shape and the steps applied.
func Run(state json.RawMessage, version int) Result {
	doc := decode(state)
	res := Result{Shape: Detect(doc), Version: version}

	for _, s := range steps {
		if version < s.below {
			doc = s.apply(doc)
			res.Applied = append(res.Applied, s.name)
		}
	}
	doc = repair(doc)
	res.Applied = append(res.Applied, "repair")

	res.Document = toDocument(doc)
	return res
}

// Detect classifies a decoded document.
func Detect(doc rawDoc) Shape {
	if doc == nil {
		return ShapeUnknown
	}
	if isLegacy(doc) {
		return ShapeLegacy
	}
	if _, ok := doc["categories"]; ok {
		return ShapeCategorized
	}
	return ShapeUnknown
}

func isLegacy(doc rawDoc) bool {
	wl, hasWL := doc["watchlist"]
	cats := doc["categories"]
	return hasWL && wl != nil && cats == nil
}

// decode reads the stored state as a loose JSON object. Numbers stay json.Number
// so numeric ticker codes keep their exact digits.
func decode(state json.RawMessage) rawDoc {
	if len(bytes.TrimSpace(state)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(state))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	doc, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return doc
}

// upgradeLegacy moves a flat watchlist into an "imported" first category and
// appends the rest of the default categories.
func upgradeLegacy(doc rawDoc) rawDoc {
	if doc == nil || !isLegacy(doc) {
		return doc
	}
	legacy := asArray(doc["watchlist"])
	if len(legacy) > models.MaxCategoryItems {
		legacy = legacy[:models.MaxCategoryItems]
	}

	defaults := models.DefaultCategories()
	cats := make([]any, 0, len(defaults))
	cats = append(cats, map[string]any{
		"id":    ImportedCategoryID,
		"name":  ImportedCategoryName,
		"items": legacy,
	})
	for _, c := range defaults[1:] {
		cats = append(cats, categoryToRaw(c))
	}

	doc["categories"] = cats
	doc["activeCategoryId"] = ImportedCategoryID
	delete(doc, "watchlist")
	return doc
}

const (
	ImportedCategoryID   = "cat-1"
	ImportedCategoryName = "インポート"
)

func categoryToRaw(c models.Category) map[string]any {
	items := make([]any, 0, len(c.Items))
	for _, it := range c.Items {
		m := map[string]any{"code": it.Code}
		for k, v := range itemFields(it) {
			if v != "" {
				m[k] = v
			}
		}
		items = append(items, m)
	}
	return map[string]any{"id": c.ID, "name": c.Name, "items": items}
}

func asArray(v any) []any {
	if a, ok := v.([]any); ok {
		return a
	}
	return []any{}
}
