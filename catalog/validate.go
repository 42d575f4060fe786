package catalog

import (
	"strings"

	"modestblooming-backend/models"
)

// ValidatePricing enforces price > 0 and 0 < discount < price, on the product
// and on every color variant against the variant's effective price.
func ValidatePricing(p models.Product) error {
	if p.Price <= 0 {
		return ErrInvalidPrice
	}
	if p.DiscountPrice != nil && (*p.DiscountPrice <= 0 || *p.DiscountPrice >= p.Price) {
		return ErrInvalidDiscount
	}
	for _, c := range p.Colors {
		if c.Price != nil && *c.Price <= 0 {
			return ErrInvalidPrice
		}
		if c.DiscountPrice != nil {
			d := *c.DiscountPrice
			if d <= 0 || d >= c.EffectivePrice(p.Price) {
				return ErrInvalidDiscount
			}
		}
	}
	return nil
}

// normalize clears zero discounts (admin forms send 0 for "none") and
// de-duplicates tags.
func normalize(p *models.Product) {
	if p.DiscountPrice != nil && *p.DiscountPrice == 0 {
		p.DiscountPrice = nil
	}
	for i := range p.Colors {
		c := &p.Colors[i]
		c.Name = strings.TrimSpace(c.Name)
		if c.DiscountPrice != nil && *c.DiscountPrice == 0 {
			c.DiscountPrice = nil
		}
		if c.Price != nil && *c.Price == 0 {
			c.Price = nil
		}
		if c.Media == nil {
			c.Media = []models.Media{}
		}
	}
	p.Tags = uniqueTags(p.Tags)
	if p.Colors == nil {
		p.Colors = []models.ColorVariant{}
	}
	if p.Media == nil {
		p.Media = []models.Media{}
	}
}

func uniqueTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
