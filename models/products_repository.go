package models

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

type ProductsRepository struct {
	db *gorm.DB
}

// ErrProductNotFound is returned when a product is not found.
var ErrProductNotFound = errors.New("product not found")

// ProductFilters narrows product listings. Zero values disable a filter.
type ProductFilters struct {
	Query    string
	Category string
	InStock  *bool
	MinPrice *float64
	MaxPrice *float64
}

// ProductStore is the lookup and write surface shared by the repository and
// its transactions.
type ProductStore interface {
	GetByID(ctx context.Context, id uint) (*Product, error)
	GetBySKU(ctx context.Context, sku string) (*Product, error)
	GetByName(ctx context.Context, name string) (*Product, error)
	Save(ctx context.Context, p *Product) error
}

func NewProductsRepository(db *gorm.DB) *ProductsRepository {
	return &ProductsRepository{
		db: db,
	}
}

// GetAllProducts returns every product matching filters, ordered by id.
func (r *ProductsRepository) GetAllProducts(ctx context.Context, filters ProductFilters) ([]Product, error) {
	var products []Product
	query := applyFilters(r.db.WithContext(ctx).Model(&Product{}), filters)
	if err := query.Order("id").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *ProductsRepository) GetFilteredProducts(ctx context.Context, offset, limit int, filters ProductFilters) ([]Product, int64, error) {
	var products []Product
	var total int64

	query := applyFilters(r.db.WithContext(ctx).Model(&Product{}), filters)

	// Count total after filtering
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("id").Offset(offset).Limit(limit).Find(&products).Error; err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

func applyFilters(query *gorm.DB, filters ProductFilters) *gorm.DB {
	if filters.Query != "" {
		like := "%" + escapeLike(filters.Query) + "%"
		query = query.Where(
			"(product_name ILIKE ? OR category ILIKE ? OR short_description ILIKE ? OR long_description ILIKE ? OR rubber_description ILIKE ?)",
			like, like, like, like, like,
		)
	}
	if filters.Category != "" {
		query = query.Where("category = ?", filters.Category)
	}
	if filters.InStock != nil {
		query = query.Where("in_stock = ?", *filters.InStock)
	}
	if filters.MinPrice != nil {
		query = query.Where("offer_price >= ?", *filters.MinPrice)
	}
	if filters.MaxPrice != nil {
		query = query.Where("offer_price <= ?", *filters.MaxPrice)
	}
	return query
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (r *ProductsRepository) GetByID(ctx context.Context, id uint) (*Product, error) {
	return r.first(ctx, "id = ?", id)
}

// GetBySKU returns the lowest-id product with the given SKU.
func (r *ProductsRepository) GetBySKU(ctx context.Context, sku string) (*Product, error) {
	return r.first(ctx, "sku = ?", sku)
}

// GetByName returns the lowest-id product with the given name.
func (r *ProductsRepository) GetByName(ctx context.Context, name string) (*Product, error) {
	return r.first(ctx, "product_name = ?", name)
}

func (r *ProductsRepository) first(ctx context.Context, cond string, arg any) (*Product, error) {
	var product Product
	if err := r.db.WithContext(ctx).
		Where(cond, arg).
		Order("id").
		First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err // Other DB error
	}
	return &product, nil
}

func (r *ProductsRepository) Create(ctx context.Context, p *Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *ProductsRepository) Save(ctx context.Context, p *Product) error {
	return r.db.WithContext(ctx).Save(p).Error
}

// Update merges patch into the product with the given id.
func (r *ProductsRepository) Update(ctx context.Context, id uint, patch ProductPatch) (*Product, error) {
	return r.update(ctx, patch, func(s ProductStore) (*Product, error) {
		return s.GetByID(ctx, id)
	})
}

func (r *ProductsRepository) UpdateBySKU(ctx context.Context, sku string, patch ProductPatch) (*Product, error) {
	return r.update(ctx, patch, func(s ProductStore) (*Product, error) {
		return s.GetBySKU(ctx, sku)
	})
}

func (r *ProductsRepository) UpdateByName(ctx context.Context, name string, patch ProductPatch) (*Product, error) {
	return r.update(ctx, patch, func(s ProductStore) (*Product, error) {
		return s.GetByName(ctx, name)
	})
}

func (r *ProductsRepository) update(ctx context.Context, patch ProductPatch, find func(ProductStore) (*Product, error)) (*Product, error) {
	var updated *Product
	err := r.Transaction(ctx, func(s ProductStore) error {
		p, err := find(s)
		if err != nil {
			return err
		}
		patch.Apply(p)
		if err := s.Save(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *ProductsRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&Product{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

// DeleteMany deletes the given ids in one statement. Unknown ids are ignored.
func (r *ProductsRepository) DeleteMany(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&Product{})
	return result.RowsAffected, result.Error
}

// Categories lists the distinct non-empty categories in use.
func (r *ProductsRepository) Categories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := r.db.WithContext(ctx).
		Model(&Product{}).
		Select("category, COUNT(*) AS products").
		Where("category <> ''").
		Group("category").
		Order("category").
		Scan(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// Transaction runs fn inside a database transaction. Each Save on the
// provided store is wrapped in a savepoint so a failed write can be rolled
// back without aborting the rest of the transaction.
func (r *ProductsRepository) Transaction(ctx context.Context, fn func(ProductStore) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txStore{ProductsRepository: ProductsRepository{db: tx}})
	})
}

type txStore struct {
	ProductsRepository
	savepoints int
}

func (s *txStore) Save(ctx context.Context, p *Product) error {
	s.savepoints++
	name := fmt.Sprintf("product_save_%d", s.savepoints)
	if err := s.db.SavePoint(name).Error; err != nil {
		return err
	}
	if err := s.ProductsRepository.Save(ctx, p); err != nil {
		if rbErr := s.db.RollbackTo(name).Error; rbErr != nil {
			return fmt.Errorf("%w (rollback to savepoint: %v)", err, rbErr)
		}
		return err
	}
	return nil
}
