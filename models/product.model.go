package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Media adalah satu aset gambar yang disimpan di media host.
type Media struct {
	URL      string `json:"url" bson:"url"`
	PublicID string `json:"publicId,omitempty" bson:"publicId,omitempty"`
}

// ColorVariant mendefinisikan varian warna sebuah produk.
type ColorVariant struct {
	Name          string   `json:"name" bson:"name" binding:"required"`
	Swatch        string   `json:"swatch" bson:"swatch"`
	Price         *float64 `json:"price,omitempty" bson:"price,omitempty"`
	DiscountPrice *float64 `json:"discountPrice,omitempty" bson:"discountPrice,omitempty"`
	Weight        *float64 `json:"weight,omitempty" bson:"weight,omitempty"`
	Media         []Media  `json:"media" bson:"media"`
}

// EffectivePrice mengembalikan harga varian, atau harga produk jika varian tidak punya harga sendiri.
func (v ColorVariant) EffectivePrice(base float64) float64 {
	if v.Price != nil && *v.Price > 0 {
		return *v.Price
	}
	return base
}

// Product mendefinisikan struktur untuk produk katalog.
type Product struct {
	ID            primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Name          string             `json:"name" bson:"name"`
	Slug          string             `json:"slug" bson:"slug"`
	Description   string             `json:"description" bson:"description"`
	Price         float64            `json:"price" bson:"price"`
	DiscountPrice *float64           `json:"discountPrice,omitempty" bson:"discountPrice,omitempty"`
	Category      string             `json:"category" bson:"category"`
	Tags          []string           `json:"tags" bson:"tags"`
	Colors        []ColorVariant     `json:"colors" bson:"colors"`
	Media         []Media            `json:"media" bson:"media"`
	InStock       bool               `json:"inStock" bson:"inStock"`
	CreatedAt     time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt" bson:"updatedAt"`

	// Dihitung saat query, tidak disimpan.
	OnSale     bool `json:"onSale" bson:"-"`
	NewArrival bool `json:"newArrival" bson:"-"`
	BestSeller bool `json:"bestSeller" bson:"-"`
}

// ProductInput adalah body untuk membuat atau memperbarui produk.
type ProductInput struct {
	Name          string         `json:"name" binding:"required"`
	Description   string         `json:"description"`
	Price         float64        `json:"price" binding:"required,gt=0"`
	DiscountPrice *float64       `json:"discountPrice"`
	Category      string         `json:"category" binding:"required"`
	Tags          []string       `json:"tags"`
	Colors        []ColorVariant `json:"colors" binding:"dive"`
	Media         []Media        `json:"media"`
	InStock       *bool          `json:"inStock"`
	MediaBase64   []string       `json:"mediaBase64,omitempty"`
}

// CloneInput adalah body untuk menggandakan produk dengan varian warna baru.
type CloneInput struct {
	Name  string       `json:"name"`
	Color ColorVariant `json:"color" binding:"required"`
}

// ColorOption adalah satu warna yang tersedia di filter-options.
type ColorOption struct {
	Name   string `json:"name" bson:"name"`
	Swatch string `json:"swatch" bson:"swatch"`
}

// PriceRange adalah rentang harga seluruh katalog.
type PriceRange struct {
	Min float64 `json:"min" bson:"min"`
	Max float64 `json:"max" bson:"max"`
}

// FilterOptions adalah nilai-nilai yang dapat dipakai untuk memfilter katalog.
type FilterOptions struct {
	Categories []string      `json:"categories"`
	Tags       []string      `json:"tags"`
	Colors     []ColorOption `json:"colors"`
	PriceRange PriceRange    `json:"priceRange"`
}
