package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/productdesk/catalog-admin/app/bulk"
	"github.com/productdesk/catalog-admin/models"
)

type Response struct {
	Products    []Product `json:"products"`
	TotalItems  int       `json:"total_items"`
	TotalPages  int       `json:"total_pages"`
	CurrentPage int       `json:"current_page"`
	PerPage     int       `json:"per_page"`
}

type Product struct {
	ID               uint     `json:"id"`
	Category         string   `json:"category"`
	ProductName      string   `json:"product_name"`
	ShortDescription string   `json:"short_description"`
	LongDescription  string   `json:"long_description"`
	MRP              *float64 `json:"mrp"`
	OfferPrice       *float64 `json:"offer_price"`
	SKU              string   `json:"sku"`
	InStock          bool     `json:"in_stock"`
	StockNumber      int      `json:"stock_number"`

	DownloadPDFs     []string `json:"download_pdfs"`
	ProductImageURLs []string `json:"product_image_urls"`
	YoutubeLinks     []string `json:"youtube_links"`

	TechnicalInformation string `json:"technical_information"`
	Manufacturer         string `json:"manufacturer"`
	SpecialNote          string `json:"special_note"`
	WhatsappNumber       string `json:"whatsapp_number"`

	IsRubber          bool     `json:"is_rubber"`
	RubberDensity     *float64 `json:"rubber_density"`
	RubberHeight      *float64 `json:"rubber_height"`
	RubberLength      *float64 `json:"rubber_length"`
	RubberThickness   *float64 `json:"rubber_thickness"`
	RubberDescription string   `json:"rubber_description"`

	Variants []Variant `json:"variants"`
}

type Variant struct {
	Name  string  `json:"name"`
	SKU   string  `json:"sku"`
	Price float64 `json:"price"`
}

type ProductProvider interface {
	GetAllProducts(ctx context.Context, filters models.ProductFilters) ([]models.Product, error)
	GetFilteredProducts(ctx context.Context, offset, limit int, filters models.ProductFilters) ([]models.Product, int64, error)
	GetByID(ctx context.Context, id uint) (*models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, id uint, patch models.ProductPatch) (*models.Product, error)
	UpdateBySKU(ctx context.Context, sku string, patch models.ProductPatch) (*models.Product, error)
	UpdateByName(ctx context.Context, name string, patch models.ProductPatch) (*models.Product, error)
	Delete(ctx context.Context, id uint) error
	DeleteMany(ctx context.Context, ids []uint) (int64, error)
}

type BulkProcessor interface {
	Process(ctx context.Context, raw []json.RawMessage) (bulk.Result, error)
}

type CatalogHandler struct {
	repo ProductProvider
	bulk BulkProcessor
}

func NewCatalogHandler(r ProductProvider, b BulkProcessor) *CatalogHandler {
	return &CatalogHandler{
		repo: r,
		bulk: b,
	}
}

const (
	defaultPerPage = 10
	maxPerPage     = 100

	// keeps (page-1)*perPage from overflowing
	maxPage = math.MaxInt32 / maxPerPage
)

// Pagination parses page and per_page, clamping them to sane bounds.
// Unparseable values fall back to the defaults.
func Pagination(q url.Values, perPageDefault int) (page, perPage int) {
	page = 1
	perPage = perPageDefault

	if pStr := q.Get("page"); pStr != "" {
		if p, err := strconv.Atoi(pStr); err == nil && p > 1 {
			page = min(p, maxPage)
		}
	}

	if lStr := q.Get("per_page"); lStr != "" {
		if l, err := strconv.Atoi(lStr); err == nil {
			if l < 1 {
				perPage = 1
			} else if l > maxPerPage {
				perPage = maxPerPage
			} else {
				perPage = l
			}
		}
	}
	return page, perPage
}

// FiltersFromQuery reads q, category, in_stock, min_price and max_price.
// Unparseable values are ignored.
func FiltersFromQuery(q url.Values) models.ProductFilters {
	filters := models.ProductFilters{
		Query:    strings.TrimSpace(q.Get("q")),
		Category: q.Get("category"),
	}
	if v := q.Get("in_stock"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			filters.InStock = &b
		}
	}
	if v := q.Get("min_price"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			filters.MinPrice = &f
		}
	}
	if v := q.Get("max_price"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			filters.MaxPrice = &f
		}
	}
	return filters
}

// TotalPages returns the number of pages needed for total items.
func TotalPages(total int64, perPage int) int {
	if total == 0 || perPage < 1 {
		return 0
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}

func (h *CatalogHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	page, perPage := Pagination(r.URL.Query(), defaultPerPage)
	filters := FiltersFromQuery(r.URL.Query())

	res, total, err := h.repo.GetFilteredProducts(r.Context(), (page-1)*perPage, perPage, filters)
	if err != nil {
		log.Printf("[catalog] list products: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get products")
		return
	}

	products := make([]Product, len(res))
	for i := range res {
		products[i] = toProduct(&res[i])
	}

	writeJSON(w, http.StatusOK, Response{
		Products:    products,
		TotalItems:  int(total),
		TotalPages:  TotalPages(total, perPage),
		CurrentPage: page,
		PerPage:     perPage,
	})
}

// HandleSearch serves /search. It shares the listing filters; q drives the
// free text match.
func (h *CatalogHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	h.HandleGet(w, r)
}

func (h *CatalogHandler) HandleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	product, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, "Product not found")
			return
		}
		log.Printf("[catalog] get product %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to retrieve product")
		return
	}

	writeJSON(w, http.StatusOK, toProduct(product))
}

func (h *CatalogHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var patch models.ProductPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	product := models.NewProduct()
	patch.Apply(product)

	if err := h.repo.Create(r.Context(), product); err != nil {
		log.Printf("[catalog] create product: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create product")
		return
	}
	log.Printf("[catalog] added product %d %q", product.ID, product.ProductName)

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":    "Product added",
		"product_id": product.ID,
	})
}

func (h *CatalogHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	patch, ok := decodePatch(w, r)
	if !ok {
		return
	}

	if _, err := h.repo.Update(r.Context(), id, patch); err != nil {
		h.updateFailed(w, err, "Product not found")
		return
	}
	log.Printf("[catalog] updated product %d", id)

	writeJSON(w, http.StatusOK, map[string]any{"message": "Product updated"})
}

func (h *CatalogHandler) HandleUpdateBySKU(w http.ResponseWriter, r *http.Request) {
	sku := r.PathValue("sku")
	patch, ok := decodePatch(w, r)
	if !ok {
		return
	}

	if _, err := h.repo.UpdateBySKU(r.Context(), sku, patch); err != nil {
		h.updateFailed(w, err, "Product with given SKU not found")
		return
	}
	log.Printf("[catalog] updated product with sku %q", sku)

	writeJSON(w, http.StatusOK, map[string]any{"message": "Product updated", "sku": sku})
}

func (h *CatalogHandler) HandleUpdateByName(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	patch, ok := decodePatch(w, r)
	if !ok {
		return
	}

	if _, err := h.repo.UpdateByName(r.Context(), name, patch); err != nil {
		h.updateFailed(w, err, "Product with given name not found")
		return
	}
	log.Printf("[catalog] updated product with name %q", name)

	writeJSON(w, http.StatusOK, map[string]any{"message": "Product updated", "product_name": name})
}

func (h *CatalogHandler) updateFailed(w http.ResponseWriter, err error, notFound string) {
	if errors.Is(err, models.ErrProductNotFound) {
		writeError(w, http.StatusNotFound, notFound)
		return
	}
	log.Printf("[catalog] update product: %v", err)
	writeError(w, http.StatusInternalServerError, "Failed to update product")
}

func (h *CatalogHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, models.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, "Product not found")
			return
		}
		log.Printf("[catalog] delete product %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to delete product")
		return
	}
	log.Printf("[catalog] deleted product %d", id)

	writeJSON(w, http.StatusOK, map[string]any{"message": "Product deleted"})
}

// HandleDeleteMany deletes {"ids": [...]}; ids that do not exist are ignored.
func (h *CatalogHandler) HandleDeleteMany(w http.ResponseWriter, r *http.Request) {
	var input struct {
		IDs []uint `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	deleted, err := h.repo.DeleteMany(r.Context(), input.IDs)
	if err != nil {
		log.Printf("[catalog] delete products %v: %v", input.IDs, err)
		writeError(w, http.StatusInternalServerError, "Failed to delete products")
		return
	}
	log.Printf("[catalog] deleted %d of %d requested products", deleted, len(input.IDs))

	writeJSON(w, http.StatusOK, map[string]any{"message": "Products deleted", "deleted": deleted})
}

func (h *CatalogHandler) HandleBulkUpdate(w http.ResponseWriter, r *http.Request) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil || raw == nil {
		writeError(w, http.StatusBadRequest, "Request body must be a list of product updates")
		return
	}

	result, err := h.bulk.Process(r.Context(), raw)
	status := http.StatusOK
	message := "Bulk update processed"
	switch {
	case err != nil:
		status = http.StatusInternalServerError
		message = "Bulk update failed"
	case !result.OK():
		status = http.StatusMultiStatus
	}

	writeJSON(w, status, struct {
		Message string         `json:"message"`
		Updated []bulk.Success `json:"updated"`
		Errors  []bulk.Failure `json:"errors"`
	}{
		Message: message,
		Updated: result.Updated,
		Errors:  result.Errors,
	})
}

func pathID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "Invalid product ID")
		return 0, false
	}
	return uint(id), true
}

func decodePatch(w http.ResponseWriter, r *http.Request) (models.ProductPatch, bool) {
	var patch models.ProductPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return patch, false
	}
	return patch, true
}

func toProduct(p *models.Product) Product {
	variants := make([]Variant, len(p.Variants))
	for i, v := range p.Variants {
		variants[i] = Variant{
			Name:  v.Name,
			SKU:   v.SKU,
			Price: v.Price.InexactFloat64(),
		}
	}

	return Product{
		ID:                   p.ID,
		Category:             p.Category,
		ProductName:          p.ProductName,
		ShortDescription:     p.ShortDescription,
		LongDescription:      p.LongDescription,
		MRP:                  nullableFloat(p.MRP.Valid, p.MRP.Decimal.InexactFloat64()),
		OfferPrice:           nullableFloat(p.OfferPrice.Valid, p.OfferPrice.Decimal.InexactFloat64()),
		SKU:                  p.SKU,
		InStock:              p.InStock,
		StockNumber:          p.StockNumber,
		DownloadPDFs:         nonNil(p.DownloadPDFs),
		ProductImageURLs:     nonNil(p.ProductImageURLs),
		YoutubeLinks:         nonNil(p.YoutubeLinks),
		TechnicalInformation: p.TechnicalInformation,
		Manufacturer:         p.Manufacturer,
		SpecialNote:          p.SpecialNote,
		WhatsappNumber:       p.ContactNumber,
		IsRubber:             p.IsRubber,
		RubberDensity:        p.RubberDensity,
		RubberHeight:         p.RubberHeight,
		RubberLength:         p.RubberLength,
		RubberThickness:      p.RubberThickness,
		RubberDescription:    p.RubberDescription,
		Variants:             variants,
	}
}

func nullableFloat(valid bool, f float64) *float64 {
	if !valid {
		return nil
	}
	return &f
}

func nonNil(list models.StringList) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[catalog] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
