package catalog

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortName      = "name"
)

// FilterQuery is the set of optional predicates narrowing a product listing,
// plus its pagination. It is built per request and never persisted.
type FilterQuery struct {
	Categories []string
	Tags       []string
	Colors     []string
	MinPrice   *float64
	MaxPrice   *float64
	OnSale     bool
	NewArrival bool
	BestSeller bool
	Sort       string
	Page       int
	Limit      int
}

// ParseFilter reads a FilterQuery from URL query parameters.
//
// Tags and colors are folded to lower case: tags are stored that way, and
// colors are matched case-insensitively by BuildQuery.
//
// A missing or unparseable page becomes DefaultPage. An explicit page below 1 is
// kept so the caller gets an empty page instead of silently seeing page one.
func ParseFilter(v url.Values) FilterQuery {
	q := FilterQuery{
		Categories: listParam(v, "category", "categories"),
		Tags:       lower(listParam(v, "tags", "tag")),
		Colors:     lower(listParam(v, "colors", "color")),
		MinPrice:   floatParam(v, "minPrice"),
		MaxPrice:   floatParam(v, "maxPrice"),
		OnSale:     boolParam(v, "onSale", "sale"),
		NewArrival: boolParam(v, "newArrival"),
		BestSeller: boolParam(v, "bestSeller"),
		Sort:       normalizeSort(v.Get("sort")),
		Page:       DefaultPage,
		Limit:      DefaultLimit,
	}

	if raw := strings.TrimSpace(v.Get("page")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			q.Page = n
		}
	}
	if raw := strings.TrimSpace(v.Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 1 {
			q.Limit = n
		}
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	return q
}

// Canonical renders q deterministically, for use in cache keys.
func (q FilterQuery) Canonical() string {
	v := url.Values{}
	add := func(key string, vals []string) {
		if len(vals) == 0 {
			return
		}
		sorted := append([]string(nil), vals...)
		sort.Strings(sorted)
		v.Set(key, strings.Join(sorted, ","))
	}
	add("category", q.Categories)
	add("tags", q.Tags)
	add("colors", q.Colors)
	if q.MinPrice != nil {
		v.Set("minPrice", strconv.FormatFloat(*q.MinPrice, 'f', -1, 64))
	}
	if q.MaxPrice != nil {
		v.Set("maxPrice", strconv.FormatFloat(*q.MaxPrice, 'f', -1, 64))
	}
	if q.OnSale {
		v.Set("onSale", "1")
	}
	if q.NewArrival {
		v.Set("newArrival", "1")
	}
	if q.BestSeller {
		v.Set("bestSeller", "1")
	}
	v.Set("sort", normalizeSort(q.Sort))
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("limit", strconv.Itoa(q.Limit))
	return v.Encode()
}

func normalizeSort(s string) string {
	switch s {
	case SortPriceAsc, SortPriceDesc, SortName:
		return s
	default:
		return SortNewest
	}
}

func listParam(v url.Values, keys ...string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, key := range keys {
		for _, raw := range v[key] {
			for _, part := range strings.Split(raw, ",") {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				if _, dup := seen[part]; dup {
					continue
				}
				seen[part] = struct{}{}
				out = append(out, part)
			}
		}
	}
	return out
}

func lower(vals []string) []string {
	if len(vals) == 0 {
		return vals
	}
	out := make([]string, 0, len(vals))
	seen := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		v = strings.ToLower(v)
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func floatParam(v url.Values, key string) *float64 {
	raw := strings.TrimSpace(v.Get(key))
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &f
}

func boolParam(v url.Values, keys ...string) bool {
	for _, key := range keys {
		switch strings.ToLower(strings.TrimSpace(v.Get(key))) {
		case "true", "1", "yes":
			return true
		}
	}
	return false
}
