package catalog

import (
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/productdesk/catalog-admin/models"
	"github.com/xuri/excelize/v2"
)

const (
	exportSheet = "Products"
	xlsxType    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var exportHeader = []string{
	"id", "product_name", "sku", "category", "mrp", "offer_price",
	"in_stock", "stock_number", "manufacturer", "is_rubber",
	"product_image_urls", "download_pdfs", "youtube_links", "variants",
}

func exportRow(p *models.Product) []any {
	var mrp, offer any
	if p.MRP.Valid {
		mrp = p.MRP.Decimal.InexactFloat64()
	}
	if p.OfferPrice.Valid {
		offer = p.OfferPrice.Decimal.InexactFloat64()
	}

	variants := make([]string, len(p.Variants))
	for i, v := range p.Variants {
		variants[i] = fmt.Sprintf("%s (%s): %s", v.Name, v.SKU, v.Price.StringFixed(2))
	}

	return []any{
		p.ID, p.ProductName, p.SKU, p.Category, mrp, offer,
		p.InStock, p.StockNumber, p.Manufacturer, p.IsRubber,
		strings.Join(p.ProductImageURLs, ","),
		strings.Join(p.DownloadPDFs, ","),
		strings.Join(p.YoutubeLinks, ","),
		strings.Join(variants, "; "),
	}
}

// HandleExport streams every product matching the listing filters as csv
// (default) or xlsx.
func (h *CatalogHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		writeError(w, http.StatusBadRequest, "Unsupported export format")
		return
	}

	products, err := h.repo.GetAllProducts(r.Context(), FiltersFromQuery(r.URL.Query()))
	if err != nil {
		log.Printf("[catalog] export products: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get products")
		return
	}

	if format == "xlsx" {
		err = writeXLSX(w, products)
	} else {
		err = writeCSV(w, products)
	}
	if err != nil {
		log.Printf("[catalog] export %s: %v", format, err)
		return
	}
	log.Printf("[catalog] exported %d products as %s", len(products), format)
}

func writeCSV(w http.ResponseWriter, products []models.Product) error {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="products.csv"`)

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for i := range products {
		row := exportRow(&products[i])
		record := make([]string, len(row))
		for j, v := range row {
			if v != nil {
				record[j] = fmt.Sprint(v)
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeXLSX(w http.ResponseWriter, products []models.Product) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return err
	}

	header := make([]any, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(exportSheet, 1, 1, bold); err != nil {
		return err
	}

	for i := range products {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := exportRow(&products[i])
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return err
		}
	}

	w.Header().Set("Content-Type", xlsxType)
	w.Header().Set("Content-Disposition", `attachment; filename="products.xlsx"`)
	return f.Write(w)
}
