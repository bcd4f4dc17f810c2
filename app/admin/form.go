package admin

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/productdesk/catalog-admin/models"
	"github.com/shopspring/decimal"
)

// FormError reports a scalar form field that could not be parsed.
type FormError struct {
	Field string
	Value string
}

func (e *FormError) Error() string {
	return fmt.Sprintf("Invalid value for %s: %q", e.Field, e.Value)
}

// PatchFromForm maps the add/edit form onto a patch. Text fields overwrite
// when present, numbers only when non-empty, checkboxes always. Rubber
// dimensions left empty are omitted from the patch and therefore cleared.
// Variants overwrite only when at least one row survives parsing.
//
// Parsing continues past an invalid field so the returned patch still carries
// everything else that was submitted; the error names the first bad field.
func PatchFromForm(form url.Values) (models.ProductPatch, error) {
	var (
		patch    models.ProductPatch
		firstErr error
	)
	fail := func(field, value string) {
		if firstErr == nil {
			firstErr = &FormError{Field: field, Value: value}
		}
	}

	text := func(dst *models.Optional[string], field string) {
		if _, ok := form[field]; ok {
			*dst = models.Some(form.Get(field))
		}
	}
	text(&patch.Category, "category")
	text(&patch.ProductName, "product_name")
	text(&patch.ShortDescription, "short_description")
	text(&patch.LongDescription, "long_description")
	text(&patch.SKU, "sku")
	text(&patch.TechnicalInformation, "technical_information")
	text(&patch.Manufacturer, "manufacturer")
	text(&patch.SpecialNote, "special_note")
	text(&patch.ContactNumber, "whatsapp_number")
	text(&patch.RubberDescription, "rubber_description")

	if _, ok := form["youtube_links"]; ok {
		patch.YoutubeLinks = models.Some(models.SplitList(form.Get("youtube_links")))
	}

	prices := []struct {
		field string
		dst   *models.Optional[decimal.Decimal]
	}{
		{"mrp", &patch.MRP},
		{"offer_price", &patch.OfferPrice},
	}
	for _, f := range prices {
		v := strings.TrimSpace(form.Get(f.field))
		if v == "" {
			continue
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			fail(f.field, v)
			continue
		}
		*f.dst = models.Some(d)
	}

	if v := strings.TrimSpace(form.Get("stock_number")); v != "" {
		if n, err := strconv.Atoi(v); err != nil {
			fail("stock_number", v)
		} else {
			patch.StockNumber = models.Some(n)
		}
	}

	patch.InStock = models.Some(form.Get("in_stock") == "on")
	patch.IsRubber = models.Some(form.Get("is_rubber") == "on")

	dimensions := []struct {
		field string
		dst   *models.Optional[float64]
	}{
		{"rubber_density", &patch.RubberDensity},
		{"rubber_height", &patch.RubberHeight},
		{"rubber_length", &patch.RubberLength},
		{"rubber_thickness", &patch.RubberThickness},
	}
	for _, f := range dimensions {
		v := strings.TrimSpace(form.Get(f.field))
		if v == "" {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			fail(f.field, v)
			continue
		}
		*f.dst = models.Some(n)
	}

	variants, _ := models.ParseVariants(form["variant_name[]"], form["variant_price[]"], form["variant_sku[]"])
	if len(variants) > 0 {
		patch.Variants = models.Some(variants)
	}

	return patch, firstErr
}
