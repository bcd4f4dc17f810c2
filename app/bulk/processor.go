package bulk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/productdesk/catalog-admin/models"
)

// Item is one entry of a bulk update: a partial product document plus an
// optional id. The sku and product_name fields double as identifiers.
type Item struct {
	ID models.Optional[uint] `json:"id"`
	models.ProductPatch
}

// Lookup field names used when resolving an item.
const (
	byID   = "id"
	bySKU  = "sku"
	byName = "product_name"
)

// Identifier returns the field and value used to resolve the item, in
// priority order id, sku, product_name. ok is false when none is usable.
func (it Item) Identifier() (field string, value any, ok bool) {
	switch {
	case it.ID.Present() && it.ID.Value != 0:
		return byID, it.ID.Value, true
	case it.SKU.Present() && it.SKU.Value != "":
		return bySKU, it.SKU.Value, true
	case it.ProductName.Present() && it.ProductName.Value != "":
		return byName, it.ProductName.Value, true
	}
	return "", nil, false
}

type Success struct {
	Identifier any    `json:"identifier"`
	Status     string `json:"status"`
}

type Failure struct {
	Identifier any    `json:"identifier,omitempty"`
	Error      string `json:"error"`
}

type Result struct {
	Updated []Success `json:"updated"`
	Errors  []Failure `json:"errors"`
}

// OK reports whether every item succeeded.
func (r Result) OK() bool {
	return len(r.Errors) == 0
}

// TxRunner runs fn in a transaction that commits when fn returns nil.
type TxRunner interface {
	Transaction(ctx context.Context, fn func(models.ProductStore) error) error
}

type Processor struct {
	repo TxRunner
}

func NewProcessor(repo TxRunner) *Processor {
	return &Processor{repo: repo}
}

// Process applies each raw update independently. Item failures are collected
// in the result and never stop later items. Successful items are committed
// together; if the commit fails every item is reported as failed and the
// commit error is returned.
func (p *Processor) Process(ctx context.Context, raw []json.RawMessage) (Result, error) {
	result := Result{Updated: []Success{}, Errors: []Failure{}}

	err := p.repo.Transaction(ctx, func(store models.ProductStore) error {
		for i, doc := range raw {
			if err := ctx.Err(); err != nil {
				return err
			}
			success, failure := p.apply(ctx, store, i, doc)
			if failure != nil {
				result.Errors = append(result.Errors, *failure)
				continue
			}
			result.Updated = append(result.Updated, *success)
		}
		return nil
	})
	if err != nil {
		log.Printf("[bulk] commit failed after %d updates: %v", len(result.Updated), err)
		failed := Result{Updated: []Success{}, Errors: result.Errors}
		for _, s := range result.Updated {
			failed.Errors = append(failed.Errors, Failure{
				Identifier: s.Identifier,
				Error:      fmt.Sprintf("Failed to update product %v: %v", s.Identifier, err),
			})
		}
		return failed, err
	}

	log.Printf("[bulk] %d succeeded, %d failed", len(result.Updated), len(result.Errors))
	return result, nil
}

func (p *Processor) apply(ctx context.Context, store models.ProductStore, index int, doc json.RawMessage) (*Success, *Failure) {
	var item Item
	if err := json.Unmarshal(doc, &item); err != nil {
		return nil, &Failure{Error: fmt.Sprintf("Invalid product update at index %d: %v", index, err)}
	}

	field, identifier, ok := item.Identifier()
	if !ok {
		return nil, &Failure{Error: "Missing identifier (id, sku, or product_name) for a product update"}
	}

	product, err := resolve(ctx, store, field, identifier)
	if err != nil {
		if errors.Is(err, models.ErrProductNotFound) {
			return nil, &Failure{Identifier: identifier, Error: fmt.Sprintf("Product not found for identifier: %v", identifier)}
		}
		return nil, &Failure{Identifier: identifier, Error: fmt.Sprintf("Failed to update product %v: %v", identifier, err)}
	}

	item.ProductPatch.Apply(product)
	if err := store.Save(ctx, product); err != nil {
		return nil, &Failure{Identifier: identifier, Error: fmt.Sprintf("Failed to update product %v: %v", identifier, err)}
	}
	return &Success{Identifier: identifier, Status: "updated"}, nil
}

func resolve(ctx context.Context, store models.ProductStore, field string, value any) (*models.Product, error) {
	switch field {
	case byID:
		return store.GetByID(ctx, value.(uint))
	case bySKU:
		return store.GetBySKU(ctx, value.(string))
	default:
		return store.GetByName(ctx, value.(string))
	}
}
