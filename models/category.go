package models

// Category is a distinct product category together with the number of
// products filed under it. Categories are free text on the product row.
type Category struct {
	Name     string `gorm:"column:category"`
	Products int64  `gorm:"column:products"`
}
