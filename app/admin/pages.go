package admin

import (
	"net/url"
	"strconv"

	"github.com/productdesk/catalog-admin/models"
)

// Filters echoes the raw listing filters back into the index page.
type Filters struct {
	Query    string
	Category string
	InStock  string
	MinPrice string
	MaxPrice string
}

type IndexPage struct {
	Products   []models.Product
	Categories []models.Category
	Filters    Filters
	Page       int
	TotalPages int
	TotalItems int64
}

func (p IndexPage) HasPrev() bool { return p.Page > 1 }
func (p IndexPage) HasNext() bool { return p.Page < p.TotalPages }

// PageURL links to page n keeping the current filters.
func (p IndexPage) PageURL(n int) string {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("q", p.Filters.Query)
	set("category", p.Filters.Category)
	set("in_stock", p.Filters.InStock)
	set("min_price", p.Filters.MinPrice)
	set("max_price", p.Filters.MaxPrice)
	q.Set("page", strconv.Itoa(n))
	return "/?" + q.Encode()
}

type FormPage struct {
	Title   string
	Action  string
	Product *models.Product
	Error   string
}

type ErrorPage struct {
	Status  int
	Message string
}
