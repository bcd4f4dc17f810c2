package models

import "github.com/shopspring/decimal"

// ProductPatch is a partial product document. Fields that are not Set keep
// the stored value when applied; an explicit null clears the field.
//
// The rubber dimensions are the exception: when absent they are reset to
// NULL. Every update path goes through Apply so the behaviour is the same for
// the JSON API, bulk updates and the admin form.
type ProductPatch struct {
	Category         Optional[string]          `json:"category"`
	ProductName      Optional[string]          `json:"product_name"`
	ShortDescription Optional[string]          `json:"short_description"`
	LongDescription  Optional[string]          `json:"long_description"`
	MRP              Optional[decimal.Decimal] `json:"mrp"`
	OfferPrice       Optional[decimal.Decimal] `json:"offer_price"`
	SKU              Optional[string]          `json:"sku"`
	InStock          Optional[bool]            `json:"in_stock"`
	StockNumber      Optional[int]             `json:"stock_number"`

	DownloadPDFs     Optional[StringList] `json:"download_pdfs"`
	ProductImageURLs Optional[StringList] `json:"product_image_urls"`
	YoutubeLinks     Optional[StringList] `json:"youtube_links"`

	TechnicalInformation Optional[string] `json:"technical_information"`
	Manufacturer         Optional[string] `json:"manufacturer"`
	SpecialNote          Optional[string] `json:"special_note"`
	ContactNumber        Optional[string] `json:"whatsapp_number"`

	IsRubber          Optional[bool]    `json:"is_rubber"`
	RubberDensity     Optional[float64] `json:"rubber_density"`
	RubberHeight      Optional[float64] `json:"rubber_height"`
	RubberLength      Optional[float64] `json:"rubber_length"`
	RubberThickness   Optional[float64] `json:"rubber_thickness"`
	RubberDescription Optional[string]  `json:"rubber_description"`

	Variants Optional[Variants] `json:"variants"`
}

// Apply merges the patch into p.
func (patch ProductPatch) Apply(p *Product) {
	merge(&p.Category, patch.Category)
	merge(&p.ProductName, patch.ProductName)
	merge(&p.ShortDescription, patch.ShortDescription)
	merge(&p.LongDescription, patch.LongDescription)
	mergeDecimal(&p.MRP, patch.MRP)
	mergeDecimal(&p.OfferPrice, patch.OfferPrice)
	merge(&p.SKU, patch.SKU)
	merge(&p.InStock, patch.InStock)
	merge(&p.StockNumber, patch.StockNumber)

	mergeList(&p.DownloadPDFs, patch.DownloadPDFs)
	mergeList(&p.ProductImageURLs, patch.ProductImageURLs)
	mergeList(&p.YoutubeLinks, patch.YoutubeLinks)

	merge(&p.TechnicalInformation, patch.TechnicalInformation)
	merge(&p.Manufacturer, patch.Manufacturer)
	merge(&p.SpecialNote, patch.SpecialNote)
	merge(&p.ContactNumber, patch.ContactNumber)

	merge(&p.IsRubber, patch.IsRubber)
	p.RubberDensity = resetOnOmission(patch.RubberDensity)
	p.RubberHeight = resetOnOmission(patch.RubberHeight)
	p.RubberLength = resetOnOmission(patch.RubberLength)
	p.RubberThickness = resetOnOmission(patch.RubberThickness)
	merge(&p.RubberDescription, patch.RubberDescription)

	if patch.Variants.Set {
		if len(patch.Variants.Value) == 0 {
			p.Variants = nil
		} else {
			p.Variants = patch.Variants.Value
		}
	}
}

func merge[T any](dst *T, o Optional[T]) {
	if o.Set {
		*dst = o.Value
	}
}

func mergeDecimal(dst *decimal.NullDecimal, o Optional[decimal.Decimal]) {
	if !o.Set {
		return
	}
	if o.Null {
		*dst = decimal.NullDecimal{}
		return
	}
	*dst = decimal.NewNullDecimal(o.Value)
}

func mergeList(dst *StringList, o Optional[StringList]) {
	if !o.Set {
		return
	}
	if o.Value == nil {
		*dst = StringList{}
		return
	}
	*dst = o.Value
}

func resetOnOmission(o Optional[float64]) *float64 {
	if !o.Present() {
		return nil
	}
	v := o.Value
	return &v
}
