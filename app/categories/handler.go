package categories

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/productdesk/catalog-admin/models"
)

type CategoryResponse struct {
	Name     string `json:"name"`
	Products int64  `json:"products"`
}

type CategoryProvider interface {
	Categories(ctx context.Context) ([]models.Category, error)
}

type CategoryHandler struct {
	repo CategoryProvider
}

func NewCategoryHandler(r CategoryProvider) *CategoryHandler {
	return &CategoryHandler{repo: r}
}

// HandleGetAll lists the categories in use with their product counts.
func (h *CategoryHandler) HandleGetAll(w http.ResponseWriter, r *http.Request) {
	categories, err := h.repo.Categories(r.Context())
	if err != nil {
		log.Printf("[categories] list: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "failed to fetch categories"})
		return
	}

	response := make([]CategoryResponse, len(categories))
	for i, c := range categories {
		response[i] = CategoryResponse{
			Name:     c.Name,
			Products: c.Products,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
