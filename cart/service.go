package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"modestblooming-backend/catalog"
	"modestblooming-backend/models"
)

const wishlistTTL = 5 * time.Minute

var ErrItemNotFound = errors.New("item not in cart")

// Products is the slice of the catalog store the cart reads live data from.
type Products interface {
	Find(ctx context.Context, filter bson.M, sort bson.D, skip, limit int64) ([]models.Product, error)
}

// Cache holds rendered wishlists.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) bool
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration)
	Delete(ctx context.Context, keys ...string)
}

// View is a cart joined with current product data.
type View struct {
	Items    []models.CartLine `json:"items"`
	Subtotal float64           `json:"subtotal"`
	Count    int               `json:"count"`
}

type Service struct {
	store    Store
	products Products
	cache    Cache
}

func NewService(store Store, products Products, cache Cache) *Service {
	return &Service{store: store, products: products, cache: cache}
}

func (s *Service) Get(ctx context.Context, userID primitive.ObjectID) (View, error) {
	items, err := s.store.Items(ctx, userID)
	if err != nil {
		return View{}, fmt.Errorf("Service.Get: %w", err)
	}
	return s.view(ctx, items)
}

// Add puts quantity units of a product (optionally in a color) into the cart.
func (s *Service) Add(ctx context.Context, userID primitive.ObjectID, req models.CartItemRequest) (View, error) {
	const op = "Service.Add"

	p, err := s.product(ctx, req.ProductID)
	if err != nil {
		return View{}, err
	}
	if _, err := catalog.UnitPrice(p, req.Color); err != nil {
		return View{}, err
	}

	item := models.CartItem{ProductID: p.ID, Color: req.Color, Quantity: req.Quantity}
	if err := s.store.PutLine(ctx, userID, item, MergeAdd); err != nil {
		return View{}, fmt.Errorf("%s: %w", op, err)
	}
	return s.current(ctx, op, userID)
}

// Update sets a line's quantity. Zero or less removes the line.
func (s *Service) Update(ctx context.Context, userID primitive.ObjectID, productHex, color string, qty int) (View, error) {
	const op = "Service.Update"

	productID, err := catalog.ParseID(productHex)
	if err != nil {
		return View{}, err
	}
	var found bool
	if qty <= 0 {
		found, err = s.store.RemoveLine(ctx, userID, productID, color)
	} else {
		found, err = s.store.SetLine(ctx, userID, productID, color, qty)
	}
	if err != nil {
		return View{}, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return View{}, ErrItemNotFound
	}
	return s.current(ctx, op, userID)
}

// Remove drops a line. Removing a line that is not there is not an error.
func (s *Service) Remove(ctx context.Context, userID primitive.ObjectID, productHex, color string) (View, error) {
	const op = "Service.Remove"

	productID, err := catalog.ParseID(productHex)
	if err != nil {
		return View{}, err
	}
	if _, err := s.store.RemoveLine(ctx, userID, productID, color); err != nil {
		return View{}, fmt.Errorf("%s: %w", op, err)
	}
	return s.current(ctx, op, userID)
}

func (s *Service) Clear(ctx context.Context, userID primitive.ObjectID) error {
	if err := s.store.Clear(ctx, userID); err != nil {
		return fmt.Errorf("Service.Clear: %w", err)
	}
	return nil
}

// Sync merges a guest cart kept on the client into the stored cart. A line
// already present keeps the larger quantity. Lines naming unknown products or
// colors are dropped, including stale ones already stored.
func (s *Service) Sync(ctx context.Context, userID primitive.ObjectID, guest []models.CartItemRequest) (View, error) {
	const op = "Service.Sync"

	incoming := make([]models.CartItem, 0, len(guest))
	for _, g := range guest {
		id, err := catalog.ParseID(g.ProductID)
		if err != nil || g.Quantity <= 0 {
			continue
		}
		incoming = append(incoming, models.CartItem{ProductID: id, Color: g.Color, Quantity: g.Quantity})
	}

	live, err := s.productMap(ctx, incoming)
	if err != nil {
		return View{}, fmt.Errorf("%s: %w", op, err)
	}
	for _, it := range incoming {
		if !sellable(live, it) {
			continue
		}
		if err := s.store.PutLine(ctx, userID, it, MergeMax); err != nil {
			return View{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	items, err := s.store.Items(ctx, userID)
	if err != nil {
		return View{}, fmt.Errorf("%s: %w", op, err)
	}
	stored, err := s.productMap(ctx, items)
	if err != nil {
		return View{}, fmt.Errorf("%s: %w", op, err)
	}
	kept := make([]models.CartItem, 0, len(items))
	for _, it := range items {
		if sellable(stored, it) {
			kept = append(kept, it)
			continue
		}
		if _, err := s.store.RemoveLine(ctx, userID, it.ProductID, it.Color); err != nil {
			return View{}, fmt.Errorf("%s: %w", op, err)
		}
	}
	return s.view(ctx, kept)
}

func sellable(live map[primitive.ObjectID]models.Product, it models.CartItem) bool {
	p, ok := live[it.ProductID]
	if !ok {
		return false
	}
	_, err := catalog.UnitPrice(p, it.Color)
	return err == nil
}

// current renders the cart as stored after a write.
func (s *Service) current(ctx context.Context, op string, userID primitive.ObjectID) (View, error) {
	items, err := s.store.Items(ctx, userID)
	if err != nil {
		return View{}, fmt.Errorf("%s: %w", op, err)
	}
	return s.view(ctx, items)
}

func (s *Service) view(ctx context.Context, items []models.CartItem) (View, error) {
	live, err := s.productMap(ctx, items)
	if err != nil {
		return View{}, fmt.Errorf("Service.view: %w", err)
	}

	v := View{Items: make([]models.CartLine, 0, len(items))}
	totals := make([]float64, 0, len(items))
	for _, it := range items {
		p, ok := live[it.ProductID]
		if !ok {
			continue
		}
		unit, err := catalog.UnitPrice(p, it.Color)
		if err != nil {
			unit, _ = catalog.UnitPrice(p, "")
		}
		line := models.CartLine{
			Product:   p,
			Color:     it.Color,
			Quantity:  it.Quantity,
			UnitPrice: unit,
			LineTotal: catalog.LineTotal(unit, it.Quantity),
		}
		v.Items = append(v.Items, line)
		v.Count += it.Quantity
		totals = append(totals, line.LineTotal)
	}
	v.Subtotal = catalog.Sum(totals...)
	return v, nil
}

func (s *Service) productMap(ctx context.Context, items []models.CartItem) (map[primitive.ObjectID]models.Product, error) {
	ids := make([]primitive.ObjectID, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	return s.byIDs(ctx, ids)
}

func (s *Service) byIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Product, error) {
	out := make(map[primitive.ObjectID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	products, err := s.products.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, nil, 0, 0)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

func (s *Service) product(ctx context.Context, hex string) (models.Product, error) {
	id, err := catalog.ParseID(hex)
	if err != nil {
		return models.Product{}, err
	}
	found, err := s.byIDs(ctx, []primitive.ObjectID{id})
	if err != nil {
		return models.Product{}, fmt.Errorf("Service.product: %w", err)
	}
	p, ok := found[id]
	if !ok {
		return models.Product{}, catalog.ErrNotFound
	}
	return p, nil
}
