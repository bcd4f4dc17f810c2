package admin

import (
	"context"
	"errors"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/productdesk/catalog-admin/app/attachments"
	"github.com/productdesk/catalog-admin/app/auth"
	"github.com/productdesk/catalog-admin/app/catalog"
	"github.com/productdesk/catalog-admin/models"
)

const perPage = 10

// multipart parts above this size spill to temporary files.
const formMemory = 8 << 20

type ProductProvider interface {
	GetFilteredProducts(ctx context.Context, offset, limit int, filters models.ProductFilters) ([]models.Product, int64, error)
	Categories(ctx context.Context) ([]models.Category, error)
	GetByID(ctx context.Context, id uint) (*models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	Save(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id uint) error
	DeleteMany(ctx context.Context, ids []uint) (int64, error)
}

type AttachmentStore interface {
	SaveAll(files []*multipart.FileHeader) ([]string, []attachments.Skip)
}

type Renderer interface {
	Render(w http.ResponseWriter, status int, name string, data any)
}

type AdminHandler struct {
	repo      ProductProvider
	files     AttachmentStore
	view      Renderer
	maxUpload int64
}

func NewAdminHandler(repo ProductProvider, files AttachmentStore, view Renderer, maxUpload int64) *AdminHandler {
	return &AdminHandler{
		repo:      repo,
		files:     files,
		view:      view,
		maxUpload: maxUpload,
	}
}

func (h *AdminHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := catalog.Pagination(q, perPage)
	filters := catalog.FiltersFromQuery(q)

	products, total, err := h.repo.GetFilteredProducts(r.Context(), (page-1)*perPage, perPage, filters)
	if err != nil {
		log.Printf("[admin] list products: %v", err)
		h.renderError(w, http.StatusInternalServerError, "Failed to load products")
		return
	}
	categories, err := h.repo.Categories(r.Context())
	if err != nil {
		log.Printf("[admin] list categories: %v", err)
		h.renderError(w, http.StatusInternalServerError, "Failed to load categories")
		return
	}

	h.view.Render(w, http.StatusOK, "index", IndexPage{
		Products:   products,
		Categories: categories,
		Filters: Filters{
			Query:    q.Get("q"),
			Category: q.Get("category"),
			InStock:  q.Get("in_stock"),
			MinPrice: q.Get("min_price"),
			MaxPrice: q.Get("max_price"),
		},
		Page:       page,
		TotalPages: catalog.TotalPages(total, perPage),
		TotalItems: total,
	})
}

func (h *AdminHandler) HandleAddForm(w http.ResponseWriter, r *http.Request) {
	h.view.Render(w, http.StatusOK, "product_form", addPage(models.NewProduct(), ""))
}

func (h *AdminHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}

	product := models.NewProduct()
	patch, err := PatchFromForm(r.PostForm)
	if err != nil {
		patch.Apply(product)
		h.view.Render(w, http.StatusBadRequest, "product_form", addPage(product, err.Error()))
		return
	}

	images, pdfs := h.upload(r)
	patch.ProductImageURLs = models.Some(models.StringList(attachments.Reconcile(nil, images, attachments.ParseOrder(r.PostForm.Get("image_order")))))
	patch.DownloadPDFs = models.Some(models.StringList(pdfs))
	patch.Apply(product)

	if err := h.repo.Create(r.Context(), product); err != nil {
		log.Printf("[admin] create product: %v", err)
		h.renderError(w, http.StatusInternalServerError, "Failed to save product")
		return
	}
	log.Printf("[admin] %s added product %d %q with %d images", actor(r), product.ID, product.ProductName, len(product.ProductImageURLs))

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AdminHandler) HandleEditForm(w http.ResponseWriter, r *http.Request) {
	product, ok := h.loadProduct(w, r)
	if !ok {
		return
	}
	h.view.Render(w, http.StatusOK, "product_form", editPage(product, ""))
}

func (h *AdminHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	product, ok := h.loadProduct(w, r)
	if !ok {
		return
	}
	if !h.parseForm(w, r) {
		return
	}

	patch, err := PatchFromForm(r.PostForm)
	if err != nil {
		patch.Apply(product)
		h.view.Render(w, http.StatusBadRequest, "product_form", editPage(product, err.Error()))
		return
	}

	images, pdfs := h.upload(r)
	order := attachments.ParseOrder(r.PostForm.Get("image_order"))
	patch.ProductImageURLs = models.Some(models.StringList(attachments.Reconcile(product.ProductImageURLs, images, order)))
	patch.DownloadPDFs = models.Some(append(append(models.StringList{}, product.DownloadPDFs...), pdfs...))
	patch.Apply(product)

	if err := h.repo.Save(r.Context(), product); err != nil {
		log.Printf("[admin] save product %d: %v", product.ID, err)
		h.renderError(w, http.StatusInternalServerError, "Failed to save product")
		return
	}
	log.Printf("[admin] %s updated product %d", actor(r), product.ID)

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AdminHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		h.renderError(w, http.StatusNotFound, "Product not found")
		return
	}

	if err := h.repo.Delete(r.Context(), uint(id)); err != nil {
		if errors.Is(err, models.ErrProductNotFound) {
			h.renderError(w, http.StatusNotFound, "Product not found")
			return
		}
		log.Printf("[admin] delete product %d: %v", id, err)
		h.renderError(w, http.StatusInternalServerError, "Failed to delete product")
		return
	}
	log.Printf("[admin] %s deleted product %d", actor(r), id)

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleDeleteSelected deletes the checked product_ids[]. Unknown or
// malformed ids are skipped.
func (h *AdminHandler) HandleDeleteSelected(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderError(w, http.StatusBadRequest, "Invalid form submission")
		return
	}

	ids := parseIDs(r.PostForm)
	deleted, err := h.repo.DeleteMany(r.Context(), ids)
	if err != nil {
		log.Printf("[admin] delete products %v: %v", ids, err)
		h.renderError(w, http.StatusInternalServerError, "Failed to delete products")
		return
	}
	log.Printf("[admin] %s deleted %d selected products", actor(r), deleted)

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func parseIDs(form url.Values) []uint {
	var ids []uint
	for _, raw := range form["product_ids[]"] {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			continue
		}
		ids = append(ids, uint(id))
	}
	return ids
}

func (h *AdminHandler) loadProduct(w http.ResponseWriter, r *http.Request) (*models.Product, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		h.renderError(w, http.StatusNotFound, "Product not found")
		return nil, false
	}

	product, err := h.repo.GetByID(r.Context(), uint(id))
	if err != nil {
		if errors.Is(err, models.ErrProductNotFound) {
			h.renderError(w, http.StatusNotFound, "Product not found")
			return nil, false
		}
		log.Printf("[admin] get product %d: %v", id, err)
		h.renderError(w, http.StatusInternalServerError, "Failed to load product")
		return nil, false
	}
	return product, true
}

// parseForm accepts both multipart and urlencoded submissions.
func (h *AdminHandler) parseForm(w http.ResponseWriter, r *http.Request) bool {
	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	}

	err := r.ParseMultipartForm(formMemory)
	if err == nil || errors.Is(err, http.ErrNotMultipart) {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.renderError(w, http.StatusRequestEntityTooLarge, "Upload is too large")
		return false
	}
	h.renderError(w, http.StatusBadRequest, "Invalid form submission")
	return false
}

func (h *AdminHandler) upload(r *http.Request) (images, pdfs []string) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	images, skipped := h.files.SaveAll(r.MultipartForm.File["images"])
	pdfs, skippedPDFs := h.files.SaveAll(r.MultipartForm.File["pdfs"])
	if n := len(skipped) + len(skippedPDFs); n > 0 {
		log.Printf("[admin] %d uploads skipped", n)
	}
	return images, pdfs
}

// actor names the logged-in user for the audit log lines.
func actor(r *http.Request) string {
	if id, ok := auth.UserID(r.Context()); ok {
		return "user " + strconv.FormatUint(uint64(id), 10)
	}
	return "anonymous"
}

func (h *AdminHandler) renderError(w http.ResponseWriter, status int, message string) {
	h.view.Render(w, status, "error", ErrorPage{Status: status, Message: message})
}

func addPage(p *models.Product, errMsg string) FormPage {
	return FormPage{Title: "Add product", Action: "/add", Product: p, Error: errMsg}
}

func editPage(p *models.Product, errMsg string) FormPage {
	return FormPage{
		Title:   "Edit product",
		Action:  "/edit/" + strconv.FormatUint(uint64(p.ID), 10),
		Product: p,
		Error:   errMsg,
	}
}
