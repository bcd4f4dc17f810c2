package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/productdesk/catalog-admin/app/admin"
	"github.com/productdesk/catalog-admin/app/auth"
	"github.com/productdesk/catalog-admin/app/catalog"
	"github.com/productdesk/catalog-admin/app/categories"
)

type Deps struct {
	Catalog    *catalog.CatalogHandler
	Categories *categories.CategoryHandler
	Admin      *admin.AdminHandler
	Auth       *auth.AuthHandler
	Sessions   *auth.Sessions

	// RateLimit guards the login and register submissions.
	RateLimit func(http.Handler) http.Handler

	UploadDir    string
	UploadPrefix string
	CORSOrigins  []string
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	// Top level so preflight requests for unregistered OPTIONS routes are answered.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	rateLimit := d.RateLimit
	if rateLimit == nil {
		rateLimit = func(next http.Handler) http.Handler { return next }
	}

	// JSON API
	r.Get("/products", d.Catalog.HandleGet)
	r.Delete("/products", d.Catalog.HandleDeleteMany)
	r.Put("/products/bulk-update", d.Catalog.HandleBulkUpdate)
	r.Get("/products/export", d.Catalog.HandleExport)
	r.Get("/product/{id}", d.Catalog.HandleGetProduct)
	r.Put("/product/{id}", d.Catalog.HandleUpdate)
	r.Delete("/product/{id}", d.Catalog.HandleDelete)
	r.Put("/product/sku/{sku}", d.Catalog.HandleUpdateBySKU)
	r.Put("/product/name/{name}", d.Catalog.HandleUpdateByName)
	r.Get("/search", d.Catalog.HandleSearch)
	r.Post("/add-product", d.Catalog.HandleCreate)
	r.Get("/categories", d.Categories.HandleGetAll)

	// Authentication
	r.Get("/register", d.Auth.HandleRegisterForm)
	r.With(rateLimit).Post("/register", d.Auth.HandleRegister)
	r.Get("/login", d.Auth.HandleLoginForm)
	r.With(rateLimit).Post("/login", d.Auth.HandleLogin)
	r.Get("/logout", d.Auth.HandleLogout)

	// Admin UI
	r.Group(func(ui chi.Router) {
		ui.Use(d.Sessions.RequireLogin)

		ui.Get("/", d.Admin.HandleIndex)
		ui.Get("/add", d.Admin.HandleAddForm)
		ui.Post("/add", d.Admin.HandleAdd)
		ui.Get("/edit/{id}", d.Admin.HandleEditForm)
		ui.Post("/edit/{id}", d.Admin.HandleEdit)
		ui.Post("/delete/{id}", d.Admin.HandleDelete)
		ui.Post("/delete-selected", d.Admin.HandleDeleteSelected)
	})

	prefix := "/" + strings.Trim(d.UploadPrefix, "/") + "/"
	r.Handle(prefix+"*", http.StripPrefix(prefix, noListing(http.FileServer(http.Dir(d.UploadDir)))))

	return r
}

// noListing hides directory indexes of the upload folder.
func noListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
