package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Variant is a named sub-option of a product with its own price and SKU.
type Variant struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	SKU   string          `json:"sku"`
}

// MarshalJSON writes the price as a JSON number so persisted rows stay
// readable by existing clients.
func (v Variant) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name  string      `json:"name"`
		Price json.Number `json:"price"`
		SKU   string      `json:"sku"`
	}{
		Name:  v.Name,
		Price: json.Number(v.Price.String()),
		SKU:   v.SKU,
	})
}

// Variants is stored as a jsonb column. An empty list is stored as NULL.
type Variants []Variant

func (vs Variants) Value() (driver.Value, error) {
	if len(vs) == 0 {
		return nil, nil
	}
	return datatypes.NewJSONSlice([]Variant(vs)).Value()
}

func (vs *Variants) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*vs = nil
		return nil
	case string:
		if strings.TrimSpace(v) == "" {
			*vs = nil
			return nil
		}
	case []byte:
		if len(v) == 0 {
			*vs = nil
			return nil
		}
	}

	var slice datatypes.JSONSlice[Variant]
	if err := slice.Scan(src); err != nil {
		return fmt.Errorf("scan variants: %w", err)
	}
	if len(slice) == 0 {
		*vs = nil
		return nil
	}
	*vs = Variants(slice)
	return nil
}

// VariantSkip records a form row dropped by ParseVariants.
type VariantSkip struct {
	Row    int
	Reason string
}

// ParseVariants builds variants from the parallel variant_name[],
// variant_price[] and variant_sku[] form arrays. Rows without a name or price,
// or with a non-numeric price, are skipped and reported.
func ParseVariants(names, prices, skus []string) (Variants, []VariantSkip) {
	n := min(len(names), len(prices), len(skus))

	var out Variants
	var skipped []VariantSkip
	for i := 0; i < n; i++ {
		name, price := names[i], prices[i]
		if name == "" || price == "" {
			skipped = append(skipped, VariantSkip{Row: i, Reason: "missing name or price"})
			continue
		}
		d, err := decimal.NewFromString(strings.TrimSpace(price))
		if err != nil {
			log.Printf("[variants] invalid variant price %q in row %d", price, i)
			skipped = append(skipped, VariantSkip{Row: i, Reason: fmt.Sprintf("invalid price %q", price)})
			continue
		}
		out = append(out, Variant{Name: name, Price: d, SKU: skus[i]})
	}
	return out, skipped
}
