package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	OrderPending   = "pending"
	OrderPaid      = "paid"
	OrderShipped   = "shipped"
	OrderDelivered = "delivered"
	OrderCancelled = "cancelled"
)

// Address adalah alamat pengiriman pesanan.
type Address struct {
	FullName   string `json:"fullName" bson:"fullName" binding:"required"`
	Phone      string `json:"phone" bson:"phone"`
	Street     string `json:"street" bson:"street" binding:"required"`
	City       string `json:"city" bson:"city" binding:"required"`
	PostalCode string `json:"postalCode" bson:"postalCode" binding:"required"`
	Country    string `json:"country" bson:"country" binding:"required"`
}

// OrderItem adalah satu baris pesanan dengan harga yang dibekukan saat checkout.
type OrderItem struct {
	ProductID primitive.ObjectID `json:"productId" bson:"productId"`
	Name      string             `json:"name" bson:"name"`
	Color     string             `json:"color,omitempty" bson:"color,omitempty"`
	UnitPrice float64            `json:"unitPrice" bson:"unitPrice"`
	Quantity  int                `json:"quantity" bson:"quantity"`
	LineTotal float64            `json:"lineTotal" bson:"lineTotal"`
}

// Order mendefinisikan struktur untuk pesanan.
type Order struct {
	ID              primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID          primitive.ObjectID `json:"userId" bson:"userId"`
	Items           []OrderItem        `json:"items" bson:"items"`
	Subtotal        float64            `json:"subtotal" bson:"subtotal"`
	Shipping        float64            `json:"shipping" bson:"shipping"`
	Total           float64            `json:"total" bson:"total"`
	ShippingAddress Address            `json:"shippingAddress" bson:"shippingAddress"`
	Status          string             `json:"status" bson:"status"`
	PaymentIntentID string             `json:"paymentIntentId,omitempty" bson:"paymentIntentId,omitempty"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt" bson:"updatedAt"`
}

type CheckoutRequest struct {
	ShippingAddress Address `json:"shippingAddress" binding:"required"`
}

type OrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}
