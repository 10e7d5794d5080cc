package migration

import (
	"encoding/json"
	"strconv"

	"TradeInfo/internal/domain/models"
)

// displayKeys are the optional cached fields of a stored item.
var displayKeys = []string{
	"name", "price", "change", "industry", "vwap",
	"ma25_diff", "settlement_date", "ex_dividend_date", "benefit_date",
}

// repair normalizes the categories list in place: items become arrays of
// {code,...} objects with a usable code, unique per category and capped at
// capacity. Category entries that are not objects, or repeat an id, are dropped.
func repair(doc rawDoc) rawDoc {
	if doc == nil {
		return nil
	}
	v, ok := doc["categories"]
	if !ok {
		return doc
	}
	list, ok := v.([]any)
	if !ok {
		// unusable; the default categories take its place
		delete(doc, "categories")
		return doc
	}

	seenIDs := make(map[string]bool, len(list))
	cats := make([]any, 0, len(list))
	for _, entry := range list {
		c, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		id, _ := coerceString(c["id"])
		if seenIDs[id] {
			continue
		}
		seenIDs[id] = true
		name, _ := coerceString(c["name"])
		cats = append(cats, map[string]any{
			"id":    id,
			"name":  name,
			"items": repairItems(c["items"]),
		})
	}
	doc["categories"] = cats
	return doc
}

func repairItems(v any) []any {
	raw, ok := v.([]any)
	if !ok {
		return []any{}
	}
	seen := make(map[string]bool, len(raw))
	out := make([]any, 0, len(raw))
	for _, entry := range raw {
		if len(out) == models.MaxCategoryItems {
			break
		}
		item := repairItem(entry)
		if item == nil {
			continue
		}
		code := item["code"].(string)
		if seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, item)
	}
	return out
}

// repairItem wraps bare strings and returns nil for entries without a usable code.
func repairItem(v any) map[string]any {
	switch it := v.(type) {
	case string:
		if it == "" {
			return nil
		}
		return map[string]any{"code": it}
	case map[string]any:
		code, ok := coerceString(it["code"])
		if !ok || code == "" {
			return nil
		}
		out := map[string]any{"code": code}
		for _, k := range displayKeys {
			if s, ok := coerceString(it[k]); ok && s != "" {
				out[k] = s
			}
		}
		return out
	default:
		return nil
	}
}

// coerceString accepts strings and numbers; everything else is unusable.
func coerceString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case json.Number:
		return s.String(), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	default:
		return "", false
	}
}

// toDocument builds the typed document. Top-level fields absent from the stored
// state keep their default values.
func toDocument(doc rawDoc) models.Document {
	out := models.DefaultDocument()
	if doc == nil {
		return out
	}

	if v, ok := doc["selectedTicker"]; ok {
		out.SelectedTicker, _ = coerceString(v)
	}
	if v, ok := doc["currentPrice"]; ok {
		out.CurrentPrice, _ = coerceString(v)
	}
	if v, ok := doc["categories"]; ok {
		out.Categories = toCategories(v.([]any))
	}
	if v, ok := doc["activeCategoryId"]; ok {
		out.ActiveCategoryID, _ = coerceString(v)
	}
	if v, ok := doc["marketIndices"]; ok {
		out.MarketIndices = toMarketIndices(v)
	}

	if out.CategoryIndex(out.ActiveCategoryID) < 0 {
		out.ActiveCategoryID = ""
		if len(out.Categories) > 0 {
			out.ActiveCategoryID = out.Categories[0].ID
		}
	}
	return out
}

func toCategories(list []any) []models.Category {
	cats := make([]models.Category, 0, len(list))
	for _, entry := range list {
		c := entry.(map[string]any)
		rawItems := c["items"].([]any)
		items := make([]models.WatchlistItem, 0, len(rawItems))
		for _, ri := range rawItems {
			items = append(items, toItem(ri.(map[string]any)))
		}
		cats = append(cats, models.Category{
			ID:    c["id"].(string),
			Name:  c["name"].(string),
			Items: items,
		})
	}
	return cats
}

func toItem(m map[string]any) models.WatchlistItem {
	get := func(k string) string {
		s, _ := m[k].(string)
		return s
	}
	return models.WatchlistItem{
		Code:           get("code"),
		Name:           get("name"),
		Price:          get("price"),
		Change:         get("change"),
		Industry:       get("industry"),
		VWAP:           get("vwap"),
		MA25Diff:       get("ma25_diff"),
		SettlementDate: get("settlement_date"),
		ExDividendDate: get("ex_dividend_date"),
		BenefitDate:    get("benefit_date"),
	}
}

func itemFields(it models.WatchlistItem) map[string]string {
	return map[string]string{
		"name":             it.Name,
		"price":            it.Price,
		"change":           it.Change,
		"industry":         it.Industry,
		"vwap":             it.VWAP,
		"ma25_diff":        it.MA25Diff,
		"settlement_date":  it.SettlementDate,
		"ex_dividend_date": it.ExDividendDate,
		"benefit_date":     it.BenefitDate,
	}
}

func toMarketIndices(v any) *models.MarketIndices {
	if _, ok := v.(map[string]any); !ok {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var mi models.MarketIndices
	if err := json.Unmarshal(b, &mi); err != nil {
		return nil
	}
	return &mi
}
