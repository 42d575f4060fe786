package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"modestblooming-backend/models"
)

func TestDecorate(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	sold := primitive.NewObjectID()

	products := []models.Product{
		{ID: sold, Price: 40, DiscountPrice: ptr(30.0), CreatedAt: now.Add(-24 * time.Hour)},
		{ID: primitive.NewObjectID(), Price: 40, DiscountPrice: ptr(45.0), CreatedAt: now.Add(-60 * 24 * time.Hour)},
		{ID: primitive.NewObjectID(), Price: 40},
	}
	Decorate(products, now, []primitive.ObjectID{sold})

	assert.True(t, products[0].OnSale)
	assert.True(t, products[0].NewArrival)
	assert.True(t, products[0].BestSeller)

	assert.False(t, products[1].OnSale)
	assert.False(t, products[1].NewArrival)
	assert.False(t, products[1].BestSeller)

	assert.False(t, products[2].OnSale)
	assert.False(t, products[2].NewArrival)
}

func TestValidatePricing(t *testing.T) {
	tests := []struct {
		name string
		p    models.Product
		err  error
	}{
		{"Plain", models.Product{Price: 20}, nil},
		{"ZeroPrice", models.Product{Price: 0}, ErrInvalidPrice},
		{"Discounted", models.Product{Price: 20, DiscountPrice: ptr(15.0)}, nil},
		{"DiscountEqualsPrice", models.Product{Price: 20, DiscountPrice: ptr(20.0)}, ErrInvalidDiscount},
		{"NegativeDiscount", models.Product{Price: 20, DiscountPrice: ptr(-1.0)}, ErrInvalidDiscount},
		{"VariantDiscountOverBase", models.Product{
			Price:  20,
			Colors: []models.ColorVariant{{Name: "sage", DiscountPrice: ptr(25.0)}},
		}, ErrInvalidDiscount},
		{"VariantOwnPrice", models.Product{
			Price:  20,
			Colors: []models.ColorVariant{{Name: "sage", Price: ptr(30.0), DiscountPrice: ptr(25.0)}},
		}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, ValidatePricing(tt.p), tt.err)
		})
	}
}

func TestNormalize(t *testing.T) {
	p := models.Product{
		Price:         20,
		DiscountPrice: ptr(0.0),
		Tags:          []string{" Linen", "linen", "", "Modest"},
		Colors:        []models.ColorVariant{{Name: " sage ", DiscountPrice: ptr(0.0)}},
	}
	normalize(&p)

	assert.Nil(t, p.DiscountPrice)
	assert.Equal(t, []string{"linen", "modest"}, p.Tags)
	assert.Equal(t, "sage", p.Colors[0].Name)
	assert.Nil(t, p.Colors[0].DiscountPrice)
	assert.NotNil(t, p.Media)
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Linen Maxi Dress":      "linen-maxi-dress",
		"  Crème  Brûlée Abaya": "creme-brulee-abaya",
		"Hijab / Sage (Large)":  "hijab-sage-large",
		"---":                   "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestUnitPrice(t *testing.T) {
	p := models.Product{
		Price:         40,
		DiscountPrice: ptr(35.0),
		Colors: []models.ColorVariant{
			{Name: "Sage", Price: ptr(45.0), DiscountPrice: ptr(30.0)},
			{Name: "navy", Price: ptr(42.0)},
			{Name: "rose"},
		},
	}

	tests := []struct {
		color string
		want  float64
	}{
		{"sage", 30},
		{"navy", 42},
		{"rose", 35},
		{"", 35},
	}
	for _, tt := range tests {
		got, err := UnitPrice(p, tt.color)
		assert.NoError(t, err, tt.color)
		assert.Equal(t, tt.want, got, tt.color)
	}

	_, err := UnitPrice(p, "black")
	assert.ErrorIs(t, err, ErrUnknownColor)

	p.DiscountPrice = nil
	got, err := UnitPrice(p, "rose")
	assert.NoError(t, err)
	assert.Equal(t, 40.0, got)
}

func TestMoney(t *testing.T) {
	assert.Equal(t, 0.3, Sum(0.1, 0.2))
	assert.Equal(t, 59.97, LineTotal(19.99, 3))
	assert.Equal(t, 0.0, Sum())
	assert.Equal(t, 1.01, LineTotal(1.005, 1))
}
