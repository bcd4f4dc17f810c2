package catalog

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/productdesk/catalog-admin/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// --- Mock Repo ---

type MockProductRepo struct {
	SourceProducts []models.Product
	Err            error

	// Fields to capture call arguments
	lastCalledOffset  int
	lastCalledLimit   int
	lastCalledFilters models.ProductFilters
	lastCalledID      uint
	lastCalledKey     string
	lastCalledPatch   models.ProductPatch
	lastCalledIDs     []uint
	created           *models.Product
}

func (m *MockProductRepo) matches(p models.Product, filters models.ProductFilters) bool {
	if filters.Category != "" && p.Category != filters.Category {
		return false
	}
	if filters.Query != "" && !strings.Contains(strings.ToLower(p.ProductName), strings.ToLower(filters.Query)) {
		return false
	}
	if filters.InStock != nil && p.InStock != *filters.InStock {
		return false
	}
	price := p.OfferPrice.Decimal.InexactFloat64()
	if filters.MinPrice != nil && (!p.OfferPrice.Valid || price < *filters.MinPrice) {
		return false
	}
	if filters.MaxPrice != nil && (!p.OfferPrice.Valid || price > *filters.MaxPrice) {
		return false
	}
	return true
}

func (m *MockProductRepo) GetAllProducts(_ context.Context, filters models.ProductFilters) ([]models.Product, error) {
	m.lastCalledFilters = filters
	if m.Err != nil {
		return nil, m.Err
	}
	var out []models.Product
	for _, p := range m.SourceProducts {
		if m.matches(p, filters) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MockProductRepo) GetFilteredProducts(ctx context.Context, offset, limit int, filters models.ProductFilters) ([]models.Product, int64, error) {
	m.lastCalledOffset = offset
	m.lastCalledLimit = limit

	filteredProducts, err := m.GetAllProducts(ctx, filters)
	if err != nil {
		return nil, 0, err
	}

	total := int64(len(filteredProducts))

	// Simulate pagination
	start := min(offset, len(filteredProducts))
	end := min(offset+limit, len(filteredProducts))

	return filteredProducts[start:end], total, nil
}

func (m *MockProductRepo) GetByID(_ context.Context, id uint) (*models.Product, error) {
	m.lastCalledID = id
	if m.Err != nil {
		return nil, m.Err
	}
	for _, p := range m.SourceProducts {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, models.ErrProductNotFound
}

func (m *MockProductRepo) Create(_ context.Context, p *models.Product) error {
	if m.Err != nil {
		return m.Err
	}
	p.ID = uint(len(m.SourceProducts) + 1)
	m.created = p
	m.SourceProducts = append(m.SourceProducts, *p)
	return nil
}

func (m *MockProductRepo) update(patch models.ProductPatch, match func(models.Product) bool) (*models.Product, error) {
	m.lastCalledPatch = patch
	if m.Err != nil {
		return nil, m.Err
	}
	for i := range m.SourceProducts {
		if match(m.SourceProducts[i]) {
			patch.Apply(&m.SourceProducts[i])
			return &m.SourceProducts[i], nil
		}
	}
	return nil, models.ErrProductNotFound
}

func (m *MockProductRepo) Update(_ context.Context, id uint, patch models.ProductPatch) (*models.Product, error) {
	m.lastCalledID = id
	return m.update(patch, func(p models.Product) bool { return p.ID == id })
}

func (m *MockProductRepo) UpdateBySKU(_ context.Context, sku string, patch models.ProductPatch) (*models.Product, error) {
	m.lastCalledKey = sku
	return m.update(patch, func(p models.Product) bool { return p.SKU == sku })
}

func (m *MockProductRepo) UpdateByName(_ context.Context, name string, patch models.ProductPatch) (*models.Product, error) {
	m.lastCalledKey = name
	return m.update(patch, func(p models.Product) bool { return p.ProductName == name })
}

func (m *MockProductRepo) Delete(_ context.Context, id uint) error {
	m.lastCalledID = id
	if m.Err != nil {
		return m.Err
	}
	for i, p := range m.SourceProducts {
		if p.ID == id {
			m.SourceProducts = append(m.SourceProducts[:i], m.SourceProducts[i+1:]...)
			return nil
		}
	}
	return models.ErrProductNotFound
}

func (m *MockProductRepo) DeleteMany(ctx context.Context, ids []uint) (int64, error) {
	m.lastCalledIDs = ids
	if m.Err != nil {
		return 0, m.Err
	}
	var deleted int64
	for _, id := range ids {
		if err := m.Delete(ctx, id); err == nil {
			deleted++
		}
	}
	return deleted, nil
}

// --- Helpers ---

func price(v float64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromFloat(v))
}

func catalogFixture() []models.Product {
	return []models.Product{
		{ID: 1, ProductName: "Nitrile Gasket", SKU: "NG-1", Category: "seals", InStock: true, OfferPrice: price(12.5), MRP: price(15)},
		{ID: 2, ProductName: "Viton O-Ring", SKU: "VO-2", Category: "seals", InStock: false, OfferPrice: price(4)},
		{ID: 3, ProductName: "Rubber Sheet", SKU: "RS-3", Category: "sheets", InStock: true, OfferPrice: price(99.99),
			ProductImageURLs: models.StringList{"static/uploads/sheet.png"},
			Variants:         models.Variants{{Name: "3mm", SKU: "RS-3-3", Price: decimal.NewFromFloat(109.5)}}},
		{ID: 4, ProductName: "Draft Product", SKU: "DR-4", Category: "sheets", InStock: true},
	}
}

// --- Tests ---

func TestHandleGet(t *testing.T) {
	testCases := []struct {
		name               string
		query              string
		mockRepoSetup      func() *MockProductRepo
		expectedStatusCode int
		checkResponse      func(t *testing.T, rec *httptest.ResponseRecorder)
		checkRepoCall      func(t *testing.T, repo *MockProductRepo)
	}{
		{
			name:  "Default pagination",
			query: "",
			mockRepoSetup: func() *MockProductRepo {
				return &MockProductRepo{SourceProducts: catalogFixture()}
			},
			expectedStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp Response
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.Len(t, resp.Products, 4)
				assert.Equal(t, 4, resp.TotalItems)
				assert.Equal(t, 1, resp.TotalPages)
				assert.Equal(t, 1, resp.CurrentPage)
				assert.Equal(t, 10, resp.PerPage)
			},
			checkRepoCall: func(t *testing.T, repo *MockProductRepo) {
				assert.Equal(t, 0, repo.lastCalledOffset)
				assert.Equal(t, 10, repo.lastCalledLimit)
			},
		},
		{
			name:  "Second page",
			query: "?page=2&per_page=3",
			mockRepoSetup: func() *MockProductRepo {
				return &MockProductRepo{SourceProducts: catalogFixture()}
			},
			expectedStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp Response
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				require.Len(t, resp.Products, 1)
				assert.Equal(t, uint(4), resp.Products[0].ID)
				assert.Equal(t, 2, resp.TotalPages)
				assert.Equal(t, 2, resp.CurrentPage)
			},
			checkRepoCall: func(t *testing.T, repo *MockProductRepo) {
				assert.Equal(t, 3, repo.lastCalledOffset)
				assert.Equal(t, 3, repo.lastCalledLimit)
			},
		},
		{
			name:  "Per page is clamped",
			query: "?per_page=500&page=-4",
			mockRepoSetup: func() *MockProductRepo {
				return &MockProductRepo{SourceProducts: catalogFixture()}
			},
			expectedStatusCode: http.StatusOK,
			checkRepoCall: func(t *testing.T, repo *MockProductRepo) {
				assert.Equal(t, 0, repo.lastCalledOffset)
				assert.Equal(t, 100, repo.lastCalledLimit)
			},
		},
		{
			name:  "Filters are forwarded",
			query: "?q=+ring+&category=seals&in_stock=false&min_price=1&max_price=5",
			mockRepoSetup: func() *MockProductRepo {
				return &MockProductRepo{SourceProducts: catalogFixture()}
			},
			expectedStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp Response
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				require.Len(t, resp.Products, 1)
				assert.Equal(t, "VO-2", resp.Products[0].SKU)
			},
			checkRepoCall: func(t *testing.T, repo *MockProductRepo) {
				f := repo.lastCalledFilters
				assert.Equal(t, "ring", f.Query)
				assert.Equal(t, "seals", f.Category)
				require.NotNil(t, f.InStock)
				assert.False(t, *f.InStock)
				require.NotNil(t, f.MinPrice)
				assert.Equal(t, 1.0, *f.MinPrice)
				require.NotNil(t, f.MaxPrice)
				assert.Equal(t, 5.0, *f.MaxPrice)
			},
		},
		{
			name:  "Unparseable filters are ignored",
			query: "?in_stock=maybe&min_price=cheap",
			mockRepoSetup: func() *MockProductRepo {
				return &MockProductRepo{SourceProducts: catalogFixture()}
			},
			expectedStatusCode: http.StatusOK,
			checkRepoCall: func(t *testing.T, repo *MockProductRepo) {
				assert.Nil(t, repo.lastCalledFilters.InStock)
				assert.Nil(t, repo.lastCalledFilters.MinPrice)
			},
		},
		{
			name:  "Empty result",
			query: "?category=nothing",
			mockRepoSetup: func() *MockProductRepo {
				return &MockProductRepo{SourceProducts: catalogFixture()}
			},
			expectedStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Contains(t, rec.Body.String(), `"products":[]`)
				assert.Contains(t, rec.Body.String(), `"total_pages":0`)
			},
		},
		{
			name:  "Lists and nulls are rendered explicitly",
			query: "?category=sheets",
			mockRepoSetup: func() *MockProductRepo {
				return &MockProductRepo{SourceProducts: catalogFixture()}
			},
			expectedStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp Response
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				require.Len(t, resp.Products, 2)

				sheet := resp.Products[0]
				assert.Equal(t, []string{"static/uploads/sheet.png"}, sheet.ProductImageURLs)
				require.Len(t, sheet.Variants, 1)
				assert.Equal(t, 109.5, sheet.Variants[0].Price)
				require.NotNil(t, sheet.OfferPrice)
				assert.Equal(t, 99.99, *sheet.OfferPrice)

				draft := resp.Products[1]
				assert.Nil(t, draft.MRP)
				assert.Nil(t, draft.OfferPrice)
				assert.NotNil(t, draft.DownloadPDFs)
				assert.NotNil(t, draft.Variants)
			},
		},
		{
			name:  "Repository error",
			query: "",
			mockRepoSetup: func() *MockProductRepo {
				return &MockProductRepo{Err: errors.New("db down")}
			},
			expectedStatusCode: http.StatusInternalServerError,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var errResp map[string]string
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
				assert.Equal(t, "failed to get products", errResp["error"])
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			mockRepo := tc.mockRepoSetup()
			handler := NewCatalogHandler(mockRepo, nil)
			req := httptest.NewRequest("GET", "/products"+tc.query, nil)
			rec := httptest.NewRecorder()

			// Act
			handler.HandleGet(rec, req)

			// Assert
			assert.Equal(t, tc.expectedStatusCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			if tc.checkResponse != nil {
				tc.checkResponse(t, rec)
			}

			if tc.checkRepoCall != nil {
				tc.checkRepoCall(t, mockRepo)
			}
		})
	}
}

func TestHandleSearch(t *testing.T) {
	mockRepo := &MockProductRepo{SourceProducts: catalogFixture()}
	handler := NewCatalogHandler(mockRepo, nil)
	req := httptest.NewRequest("GET", "/search?q=GASKET", nil)
	rec := httptest.NewRecorder()

	handler.HandleSearch(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "NG-1", resp.Products[0].SKU)
}

func TestHandleDeleteMany(t *testing.T) {
	testCases := []struct {
		name               string
		body               string
		mockRepoSetup      func() *MockProductRepo
		expectedStatusCode int
		expectedDeleted    float64
		checkRepoCall      func(t *testing.T, repo *MockProductRepo)
	}{
		{
			name: "Deletes existing ids and ignores unknown ones",
			body: `{"ids": [1, 3, 42]}`,
			mockRepoSetup: func() *MockProductRepo {
				return &MockProductRepo{SourceProducts: catalogFixture()}
			},
			expectedStatusCode: http.StatusOK,
			expectedDeleted:    2,
			checkRepoCall: func(t *testing.T, repo *MockProductRepo) {
				assert.Equal(t, []uint{1, 3, 42}, repo.lastCalledIDs)
				assert.Len(t, repo.SourceProducts, 2)
			},
		},
		{
			name: "Empty list",
			body: `{"ids": []}`,
			mockRepoSetup: func() *MockProductRepo {
				return &MockProductRepo{SourceProducts: catalogFixture()}
			},
			expectedStatusCode: http.StatusOK,
			expectedDeleted:    0,
		},
		{
			name: "Invalid body",
			body: `[1, 2]`,
			mockRepoSetup: func() *MockProductRepo {
				return &MockProductRepo{}
			},
			expectedStatusCode: http.StatusBadRequest,
			checkRepoCall: func(t *testing.T, repo *MockProductRepo) {
				assert.Nil(t, repo.lastCalledIDs)
			},
		},
		{
			name: "Repository error",
			body: `{"ids": [1]}`,
			mockRepoSetup: func() *MockProductRepo {
				return &MockProductRepo{Err: errors.New("db down")}
			},
			expectedStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			mockRepo := tc.mockRepoSetup()
			handler := NewCatalogHandler(mockRepo, nil)
			req := httptest.NewRequest("DELETE", "/products", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()

			// Act
			handler.HandleDeleteMany(rec, req)

			// Assert
			assert.Equal(t, tc.expectedStatusCode, rec.Code)
			if tc.expectedStatusCode == http.StatusOK {
				var resp map[string]any
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.Equal(t, tc.expectedDeleted, resp["deleted"])
			}
			if tc.checkRepoCall != nil {
				tc.checkRepoCall(t, mockRepo)
			}
		})
	}
}

func TestHandleExport(t *testing.T) {
	t.Run("CSV is the default format", func(t *testing.T) {
		mockRepo := &MockProductRepo{SourceProducts: catalogFixture()}
		handler := NewCatalogHandler(mockRepo, nil)
		req := httptest.NewRequest("GET", "/products/export?category=sheets", nil)
		rec := httptest.NewRecorder()

		handler.HandleExport(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))

		records, err := csv.NewReader(rec.Body).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, exportHeader, records[0])
		assert.Equal(t, "RS-3", records[1][2])
		assert.Equal(t, "99.99", records[1][5])
		assert.Equal(t, "3mm (RS-3-3): 109.50", records[1][13])
		assert.Equal(t, "", records[2][4], "missing price exports as an empty cell")
		assert.Equal(t, "sheets", mockRepo.lastCalledFilters.Category)
	})

	t.Run("XLSX workbook", func(t *testing.T) {
		mockRepo := &MockProductRepo{SourceProducts: catalogFixture()}
		handler := NewCatalogHandler(mockRepo, nil)
		req := httptest.NewRequest("GET", "/products/export?format=XLSX", nil)
		rec := httptest.NewRecorder()

		handler.HandleExport(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, xlsxType, rec.Header().Get("Content-Type"))

		f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
		require.NoError(t, err)
		defer f.Close()

		rows, err := f.GetRows(exportSheet)
		require.NoError(t, err)
		require.Len(t, rows, 5)
		assert.Equal(t, "product_name", rows[0][1])
		assert.Equal(t, "Viton O-Ring", rows[2][1])
	})

	t.Run("Unsupported format", func(t *testing.T) {
		mockRepo := &MockProductRepo{SourceProducts: catalogFixture()}
		handler := NewCatalogHandler(mockRepo, nil)
		req := httptest.NewRequest("GET", "/products/export?format=pdf", nil)
		rec := httptest.NewRecorder()

		handler.HandleExport(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Repository error", func(t *testing.T) {
		handler := NewCatalogHandler(&MockProductRepo{Err: errors.New("db down")}, nil)
		req := httptest.NewRequest("GET", "/products/export", nil)
		rec := httptest.NewRecorder()

		handler.HandleExport(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 10))
	assert.Equal(t, 1, TotalPages(10, 10))
	assert.Equal(t, 2, TotalPages(11, 10))
	assert.Equal(t, 0, TotalPages(5, 0))
}

func TestPagination(t *testing.T) {
	testCases := []struct {
		name            string
		query           string
		expectedPage    int
		expectedPerPage int
	}{
		{name: "Defaults", query: "", expectedPage: 1, expectedPerPage: 10},
		{name: "Explicit values", query: "page=4&per_page=25", expectedPage: 4, expectedPerPage: 25},
		{name: "Per page clamped", query: "per_page=0", expectedPage: 1, expectedPerPage: 1},
		{name: "Garbage page", query: "page=x", expectedPage: 1, expectedPerPage: 10},
		{name: "Huge page is capped", query: "page=9223372036854775807&per_page=100", expectedPage: maxPage, expectedPerPage: 100},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := url.ParseQuery(tc.query)
			require.NoError(t, err)

			page, perPage := Pagination(q, defaultPerPage)

			assert.Equal(t, tc.expectedPage, page)
			assert.Equal(t, tc.expectedPerPage, perPage)
			assert.GreaterOrEqual(t, (page-1)*perPage, 0)
		})
	}
}

func TestHandleGetHugePage(t *testing.T) {
	// Arrange
	mockRepo := &MockProductRepo{SourceProducts: catalogFixture()}
	handler := NewCatalogHandler(mockRepo, nil)
	req := httptest.NewRequest("GET", "/products?page=9223372036854775807", nil)
	rec := httptest.NewRecorder()

	// Act
	handler.HandleGet(rec, req)

	// Assert
	require.Equal(t, http.StatusOK, rec.Code)
	var res Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Empty(t, res.Products)
	assert.Equal(t, maxPage, res.CurrentPage)
	assert.Equal(t, (maxPage-1)*defaultPerPage, mockRepo.lastCalledOffset)
}
