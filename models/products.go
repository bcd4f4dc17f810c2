package models

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Product represents a product in the catalog.
// Media lists keep the display order chosen by the editor.
type Product struct {
	ID               uint                `gorm:"primaryKey"`
	Category         string              `gorm:"size:100;index"`
	ProductName      string              `gorm:"size:200;index"`
	ShortDescription string              `gorm:"type:text"`
	LongDescription  string              `gorm:"type:text"`
	MRP              decimal.NullDecimal `gorm:"type:decimal(10,2)"`
	OfferPrice       decimal.NullDecimal `gorm:"type:decimal(10,2)"`
	SKU              string              `gorm:"size:50;index"`
	InStock          bool                `gorm:"not null"`
	StockNumber      int                 `gorm:"not null"`

	DownloadPDFs     StringList `gorm:"column:download_pdfs;type:text[]"`
	ProductImageURLs StringList `gorm:"column:product_image_urls;type:text[]"`
	YoutubeLinks     StringList `gorm:"type:text[]"`

	TechnicalInformation string `gorm:"type:text"`
	Manufacturer         string `gorm:"size:200"`
	SpecialNote          string `gorm:"type:text"`
	ContactNumber        string `gorm:"column:whatsapp_number;size:20"`

	IsRubber          bool     `gorm:"not null"`
	RubberDensity     *float64
	RubberHeight      *float64
	RubberLength      *float64
	RubberThickness   *float64
	RubberDescription string `gorm:"type:text"`

	Variants Variants `gorm:"type:jsonb"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *Product) TableName() string {
	return "products"
}

// NewProduct returns a product carrying the defaults used on creation.
func NewProduct() *Product {
	return &Product{InStock: true}
}

// StringList is an ordered list of strings stored as a text[] column.
// On the wire it accepts either a JSON array or a comma separated string.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return pq.StringArray{}.Value()
	}
	return pq.StringArray(l).Value()
}

func (l *StringList) Scan(src any) error {
	var arr pq.StringArray
	if err := arr.Scan(src); err != nil {
		return err
	}
	*l = StringList(arr)
	return nil
}

func (l *StringList) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*l = SplitList(s)
		return nil
	}
	var arr []string
	if err := json.Unmarshal(b, &arr); err != nil {
		return err
	}
	*l = StringList(arr)
	return nil
}

// SplitList splits a comma separated value, dropping empty entries.
func SplitList(s string) StringList {
	out := StringList{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
