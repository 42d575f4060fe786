package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CartItem adalah satu baris keranjang.
type CartItem struct {
	ProductID primitive.ObjectID `json:"productId" bson:"productId"`
	Color     string             `json:"color,omitempty" bson:"color,omitempty"`
	Quantity  int                `json:"quantity" bson:"quantity"`
}

// Cart mendefinisikan keranjang milik satu pengguna.
type Cart struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    primitive.ObjectID `json:"userId" bson:"userId"`
	Items     []CartItem         `json:"items" bson:"items"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// CartLine adalah baris keranjang yang sudah digabung dengan data produk terkini.
type CartLine struct {
	Product   Product `json:"product"`
	Color     string  `json:"color,omitempty"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	LineTotal float64 `json:"lineTotal"`
}

type CartItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

type CartQuantityRequest struct {
	Color    string `json:"color"`
	Quantity int    `json:"quantity" binding:"min=0"`
}

type CartSyncRequest struct {
	Items []CartItemRequest `json:"items" binding:"dive"`
}

// Wishlist mendefinisikan daftar keinginan milik satu pengguna.
type Wishlist struct {
	ID         primitive.ObjectID   `json:"id,omitempty" bson:"_id,omitempty"`
	UserID     primitive.ObjectID   `json:"userId" bson:"userId"`
	ProductIDs []primitive.ObjectID `json:"productIds" bson:"productIds"`
	UpdatedAt  time.Time            `json:"updatedAt" bson:"updatedAt"`
}

type WishlistRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

type WishlistSyncRequest struct {
	ProductIDs []string `json:"productIds"`
}
