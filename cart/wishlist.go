package cart

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"modestblooming-backend/catalog"
	"modestblooming-backend/models"
)

func wishlistKey(userID primitive.ObjectID) string { return "wishlist:" + userID.Hex() }

// Wishlist returns the user's saved products in the order they were added.
// Products deleted since are skipped.
func (s *Service) Wishlist(ctx context.Context, userID primitive.ObjectID) ([]models.Product, error) {
	const op = "Service.Wishlist"

	key := wishlistKey(userID)
	var cached []models.Product
	if s.cache != nil && s.cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}

	ids, err := s.store.WishlistIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	live, err := s.byIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	products := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := live[id]; ok {
			products = append(products, p)
		}
	}

	if s.cache != nil {
		s.cache.SetJSON(ctx, key, products, wishlistTTL)
	}
	return products, nil
}

func (s *Service) AddWish(ctx context.Context, userID primitive.ObjectID, productHex string) ([]models.Product, error) {
	p, err := s.product(ctx, productHex)
	if err != nil {
		return nil, err
	}
	if err := s.store.AddWishes(ctx, userID, p.ID); err != nil {
		return nil, fmt.Errorf("Service.AddWish: %w", err)
	}
	s.forgetWishlist(ctx, userID)
	return s.Wishlist(ctx, userID)
}

func (s *Service) RemoveWish(ctx context.Context, userID primitive.ObjectID, productHex string) ([]models.Product, error) {
	id, err := catalog.ParseID(productHex)
	if err != nil {
		return nil, err
	}
	if err := s.store.RemoveWish(ctx, userID, id); err != nil {
		return nil, fmt.Errorf("Service.RemoveWish: %w", err)
	}
	s.forgetWishlist(ctx, userID)
	return s.Wishlist(ctx, userID)
}

// SyncWishlist adds every valid id from a guest wishlist.
func (s *Service) SyncWishlist(ctx context.Context, userID primitive.ObjectID, productHexes []string) ([]models.Product, error) {
	ids := make([]primitive.ObjectID, 0, len(productHexes))
	for _, h := range productHexes {
		if id, err := catalog.ParseID(h); err == nil {
			ids = append(ids, id)
		}
	}
	live, err := s.byIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("Service.SyncWishlist: %w", err)
	}
	known := ids[:0]
	for _, id := range ids {
		if _, ok := live[id]; ok {
			known = append(known, id)
		}
	}
	if err := s.store.AddWishes(ctx, userID, known...); err != nil {
		return nil, fmt.Errorf("Service.SyncWishlist: %w", err)
	}
	s.forgetWishlist(ctx, userID)
	return s.Wishlist(ctx, userID)
}

func (s *Service) forgetWishlist(ctx context.Context, userID primitive.ObjectID) {
	if s.cache != nil {
		s.cache.Delete(ctx, wishlistKey(userID))
	}
}
