package orders

import (
	"context"

	"github.com/google/uuid"

	"github.com/delicado-shop/delicado-api/pkg/db/models"
	pkgerrors "github.com/delicado-shop/delicado-api/pkg/errors"
	"github.com/delicado-shop/delicado-api/pkg/types"
)

type stockShortage struct {
	ProductID uuid.UUID `json:"product_id"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

// priceItems snapshots catalog prices onto the submitted lines. Lines for the
// same product and personalization are merged, and the combined quantity per
// product must fit current stock.
func priceItems(ctx context.Context, catalog Catalog, personalizations PersonalizationLookup, input []ItemInput) ([]types.OrderItem, error) {
	if len(input) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}

	type lineKey struct {
		product         uuid.UUID
		personalization uuid.UUID
	}
	order := make([]lineKey, 0, len(input))
	quantities := make(map[lineKey]int, len(input))
	productIDs := make([]uuid.UUID, 0, len(input))
	personalizationIDs := make([]uuid.UUID, 0)
	seenProduct := map[uuid.UUID]bool{}

	for _, item := range input {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
		}
		if item.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
		}
		key := lineKey{product: item.ProductID}
		if item.PersonalizationID != nil {
			key.personalization = *item.PersonalizationID
		}
		if _, ok := quantities[key]; !ok {
			order = append(order, key)
			if key.personalization != uuid.Nil {
				personalizationIDs = append(personalizationIDs, key.personalization)
			}
		}
		quantities[key] += item.Quantity
		if !seenProduct[item.ProductID] {
			seenProduct[item.ProductID] = true
			productIDs = append(productIDs, item.ProductID)
		}
	}

	products, err := catalog.FindByIDs(ctx, productIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	for _, id := range productIDs {
		if _, ok := products[id]; !ok {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "product %s not found", id)
		}
	}

	saved := map[uuid.UUID]models.Personalization{}
	if len(personalizationIDs) > 0 {
		if personalizations == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "personalized items are not supported")
		}
		saved, err = personalizations.FindByIDs(ctx, personalizationIDs)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load personalizations")
		}
	}

	requested := map[uuid.UUID]int{}
	items := make([]types.OrderItem, 0, len(order))
	for _, key := range order {
		product := products[key.product]
		qty := quantities[key]
		item := types.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Category:  product.Category,
			ImageURL:  product.ImageURL,
			UnitPrice: product.Price.Round(2),
			Quantity:  qty,
		}
		if key.personalization != uuid.Nil {
			p, ok := saved[key.personalization]
			if !ok {
				return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "personalization %s not found", key.personalization)
			}
			if p.ProductID != product.ID {
				return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "personalization %s belongs to another product", key.personalization)
			}
			cfg := p.Config()
			item.Personalization = &cfg
		}
		requested[product.ID] += qty
		items = append(items, item)
	}

	var shortages []stockShortage
	for _, id := range productIDs {
		if available := products[id].Stock; requested[id] > available {
			shortages = append(shortages, stockShortage{ProductID: id, Requested: requested[id], Available: available})
		}
	}
	if len(shortages) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock").WithDetails(map[string]any{"items": shortages})
	}
	return items, nil
}
