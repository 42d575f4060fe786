package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"modestblooming-backend/catalog"
	"modestblooming-backend/models"
	"modestblooming-backend/services"
)

// CartSource is where checkout reads the buyer's cart and takes the
// ordered quantities off it.
type CartSource interface {
	Items(ctx context.Context, userID primitive.ObjectID) ([]models.CartItem, error)
	Release(ctx context.Context, userID primitive.ObjectID, lines []models.CartItem) error
}

type Products interface {
	Find(ctx context.Context, filter bson.M, sort bson.D, skip, limit int64) ([]models.Product, error)
}

type Payments interface {
	CreateIntent(ctx context.Context, orderID string, amountCents int64, currency string) (services.Intent, error)
	ParseEvent(payload []byte, signature string) (services.PaymentEvent, error)
}

// Page is one page of the admin order listing.
type Page struct {
	Orders     []models.Order `json:"orders"`
	Total      int64          `json:"total"`
	TotalPages int            `json:"totalPages"`
	Page       int            `json:"page"`
}

type Config struct {
	Shipping ShippingRules
	Currency string
}

type Service struct {
	store    Store
	carts    CartSource
	products Products
	payments Payments
	mailer   services.Mailer
	cfg      Config
	now      func() time.Time
}

// NewService wires checkout. payments and mailer may be nil.
func NewService(store Store, carts CartSource, products Products, payments Payments, mailer services.Mailer, cfg Config) *Service {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	return &Service{
		store:    store,
		carts:    carts,
		products: products,
		payments: payments,
		mailer:   mailer,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Checkout turns the user's cart into a pending order. clientSecret is empty
// when payments are not configured.
func (s *Service) Checkout(ctx context.Context, userID primitive.ObjectID, email string, addr models.Address) (models.Order, string, error) {
	const op = "Service.Checkout"
	log := slog.With("op", op, "user", userID.Hex())

	items, err := s.carts.Items(ctx, userID)
	if err != nil {
		return models.Order{}, "", fmt.Errorf("%s: %w", op, err)
	}
	if len(items) == 0 {
		return models.Order{}, "", ErrEmptyCart
	}

	lines, err := s.lines(ctx, items)
	if err != nil {
		return models.Order{}, "", err
	}

	now := s.now()
	order := models.Order{
		ID:              primitive.NewObjectID(),
		UserID:          userID,
		Items:           lines,
		ShippingAddress: addr,
		Status:          models.OrderPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	Price(&order, s.cfg.Shipping)

	var clientSecret string
	if s.payments != nil {
		intent, err := s.payments.CreateIntent(ctx, order.ID.Hex(), AmountCents(order.Total), s.cfg.Currency)
		if err != nil {
			return models.Order{}, "", fmt.Errorf("%s: %w", op, err)
		}
		order.PaymentIntentID = intent.ID
		clientSecret = intent.ClientSecret
	}

	if err := s.store.Insert(ctx, &order); err != nil {
		return models.Order{}, "", fmt.Errorf("%s: %w", op, err)
	}
	// Only what was ordered leaves the cart; lines added meanwhile stay.
	if err := s.carts.Release(ctx, userID, items); err != nil {
		log.Warn("cart not released after checkout", "order", order.ID.Hex(), "err", err)
	}

	s.sendConfirmation(order, email)
	return order, clientSecret, nil
}

func (s *Service) lines(ctx context.Context, items []models.CartItem) ([]models.OrderItem, error) {
	ids := make([]primitive.ObjectID, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	found, err := s.products.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, nil, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("Service.lines: %w", err)
	}
	byID := make(map[primitive.ObjectID]models.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	lines := make([]models.OrderItem, 0, len(items))
	for _, it := range items {
		p, ok := byID[it.ProductID]
		if !ok || !p.InStock || it.Quantity < 1 {
			return nil, ErrUnavailable
		}
		unit, err := catalog.UnitPrice(p, it.Color)
		if err != nil {
			return nil, ErrUnavailable
		}
		lines = append(lines, models.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Color:     it.Color,
			UnitPrice: unit,
			Quantity:  it.Quantity,
		})
	}
	return lines, nil
}

func (s *Service) sendConfirmation(order models.Order, email string) {
	if s.mailer == nil || email == "" {
		return
	}
	go func() {
		log := slog.With("op", "Service.sendConfirmation", "order", order.ID.Hex())
		body, err := services.OrderConfirmationHTML(order)
		if err != nil {
			log.Error("render confirmation", "err", err)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.mailer.Send(ctx, email, "Your Modest Blooming order", body); err != nil {
			log.Warn("confirmation email failed", "err", err)
		}
	}()
}

// ForUser lists the user's orders, newest first.
func (s *Service) ForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	list, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Service.ForUser: %w", err)
	}
	return list, nil
}

// Get returns order hex if viewer owns it or is an admin. Orders of other
// users are reported as not found.
func (s *Service) Get(ctx context.Context, hex string, viewer primitive.ObjectID, admin bool) (models.Order, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return models.Order{}, ErrInvalidID
	}
	o, err := s.store.FindByID(ctx, id)
	if err != nil {
		return o, err
	}
	if !admin && o.UserID != viewer {
		return models.Order{}, ErrNotFound
	}
	return o, nil
}

// List is the admin listing, optionally narrowed to one status.
func (s *Service) List(ctx context.Context, status string, page, limit int) (Page, error) {
	const op = "Service.List"

	if status != "" && !ValidStatus(status) {
		return Page{}, ErrInvalidStatus
	}
	total, err := s.store.Count(ctx, status)
	if err != nil {
		return Page{}, fmt.Errorf("%s: %w", op, err)
	}
	pg := catalog.Paginate(total, page, limit)
	out := Page{Orders: []models.Order{}, Total: pg.Total, TotalPages: pg.TotalPages, Page: pg.Number}
	if !pg.InRange {
		return out, nil
	}
	out.Orders, err = s.store.List(ctx, status, pg.Skip, int64(pg.Limit))
	if err != nil {
		return Page{}, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// UpdateStatus applies an admin status change.
func (s *Service) UpdateStatus(ctx context.Context, hex, to string) (models.Order, error) {
	const op = "Service.UpdateStatus"

	if !ValidStatus(to) {
		return models.Order{}, ErrInvalidStatus
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return models.Order{}, ErrInvalidID
	}
	o, err := s.store.FindByID(ctx, id)
	if err != nil {
		return o, err
	}
	if !CanTransition(o.Status, to) {
		return o, ErrInvalidTransition
	}
	ok, err := s.store.SetStatus(ctx, id, o.Status, to)
	if err != nil {
		return o, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return o, ErrInvalidTransition
	}
	o.Status = to
	o.UpdatedAt = s.now()
	return o, nil
}

// HandlePaymentEvent applies a verified payment webhook. Replays of an event
// that already took effect are accepted without change.
func (s *Service) HandlePaymentEvent(ctx context.Context, payload []byte, signature string) error {
	const op = "Service.HandlePaymentEvent"
	log := slog.With("op", op)

	if s.payments == nil {
		return ErrPaymentsDisabled
	}
	ev, err := s.payments.ParseEvent(payload, signature)
	if err != nil {
		return err
	}
	if ev.Type != services.EventPaymentSucceeded {
		log.Debug("payment event ignored", "type", ev.Type)
		return nil
	}

	var o models.Order
	if id, perr := primitive.ObjectIDFromHex(ev.OrderID); perr == nil {
		o, err = s.store.FindByID(ctx, id)
	} else {
		o, err = s.store.FindByIntent(ctx, ev.IntentID)
	}
	if errors.Is(err, ErrNotFound) {
		log.Warn("payment for unknown order", "intent", ev.IntentID, "order", ev.OrderID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if o.Status != models.OrderPending {
		return nil
	}
	if _, err := s.store.SetStatus(ctx, o.ID, models.OrderPending, models.OrderPaid); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	log.Info("order paid", "order", o.ID.Hex())
	return nil
}
