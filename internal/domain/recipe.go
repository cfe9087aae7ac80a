package domain

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

var recipeJSON = jsoniter.Config{UseNumber: true}.Froze()

// Recipe maps a normalized chemical name to the quantity one job consumes.
type Recipe map[string]decimal.Decimal

// RecipeEntry is one line of a recipe.
type RecipeEntry struct {
	Chemical string
	Quantity decimal.Decimal
}

// NormalizeChemical is the key form used for recipes and inventory lookups.
func NormalizeChemical(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ParseRecipe decodes a JSON object of chemical -> quantity. Quantities may be
// numbers or numeric strings; negative or non-numeric values are rejected.
func ParseRecipe(raw []byte) (Recipe, error) {
	out := Recipe{}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return out, nil
	}

	var fields map[string]any
	if err := recipeJSON.Unmarshal(raw, &fields); err != nil {
		return nil, ValidationError{Field: "chemical_recipe", Msg: "recipe must be a JSON object", Err: err}
	}
	for name, v := range fields {
		key := NormalizeChemical(name)
		if key == "" {
			return nil, ValidationError{Field: "chemical_recipe", Msg: "empty chemical name"}
		}
		var s string
		switch val := v.(type) {
		case string:
			s = strings.TrimSpace(val)
		case bool, nil, map[string]any, []any:
			return nil, ValidationError{Field: "chemical_recipe", Msg: fmt.Sprintf("quantity for %q is not numeric", name)}
		default:
			s = fmt.Sprint(val)
		}
		qty, err := decimal.NewFromString(s)
		if err != nil {
			return nil, ValidationError{Field: "chemical_recipe", Msg: fmt.Sprintf("quantity for %q is not numeric", name), Err: err}
		}
		if qty.IsNegative() {
			return nil, ValidationError{Field: "chemical_recipe", Msg: fmt.Sprintf("quantity for %q is negative", name)}
		}
		out[key] = out[key].Add(qty)
	}
	return out, nil
}

// Entries returns the recipe sorted by chemical name.
func (r Recipe) Entries() []RecipeEntry {
	out := make([]RecipeEntry, 0, len(r))
	for name, qty := range r {
		out = append(out, RecipeEntry{Chemical: name, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Chemical < out[j].Chemical })
	return out
}
