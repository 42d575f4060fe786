package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"modestblooming-backend/models"
)

type fakeStore struct {
	mu       sync.Mutex
	products []models.Product
	best     []primitive.ObjectID
	taken    map[string]bool
	textHits []models.Product
	writeErr error

	finds      int
	counts     int
	lastFilter bson.M
	lastSkip   int64
	lastLimit  int64
}

func (f *fakeStore) Find(_ context.Context, filter bson.M, _ bson.D, skip, limit int64) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finds++
	f.lastFilter, f.lastSkip, f.lastLimit = filter, skip, limit

	src := f.products
	if in, ok := filter["_id"].(bson.M); ok {
		ids, _ := in["$in"].([]primitive.ObjectID)
		want := make(map[primitive.ObjectID]bool, len(ids))
		for _, id := range ids {
			want[id] = true
		}
		src = nil
		for _, p := range f.products {
			if want[p.ID] {
				src = append(src, p)
			}
		}
	}

	if skip >= int64(len(src)) {
		return []models.Product{}, nil
	}
	src = src[skip:]
	if limit > 0 && limit < int64(len(src)) {
		src = src[:limit]
	}
	return append([]models.Product(nil), src...), nil
}

func (f *fakeStore) Count(_ context.Context, _ bson.M) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts++
	return int64(len(f.products)), nil
}

func (f *fakeStore) FindOne(_ context.Context, filter bson.M) (models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if id, ok := filter["_id"].(primitive.ObjectID); ok && p.ID == id {
			return p, nil
		}
		if slug, ok := filter["slug"].(string); ok && p.Slug == slug {
			return p, nil
		}
	}
	return models.Product{}, ErrNotFound
}

func (f *fakeStore) Insert(_ context.Context, p *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	f.products = append(f.products, *p)
	return nil
}

func (f *fakeStore) Replace(_ context.Context, p models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	for i := range f.products {
		if f.products[i].ID == p.ID {
			f.products[i] = p
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeStore) Delete(_ context.Context, id primitive.ObjectID) (models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.products {
		if p.ID == id {
			f.products = append(f.products[:i], f.products[i+1:]...)
			return p, nil
		}
	}
	return models.Product{}, ErrNotFound
}

func (f *fakeStore) SlugExists(_ context.Context, slug string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.taken[slug] {
		return true, nil
	}
	for _, p := range f.products {
		if p.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) Options(context.Context) (models.FilterOptions, error) {
	return models.FilterOptions{Categories: []string{"dresses"}}, nil
}

func (f *fakeStore) BestSellerIDs(context.Context, int) ([]primitive.ObjectID, error) {
	return f.best, nil
}

func (f *fakeStore) TextSearch(context.Context, string, int64) ([]models.Product, error) {
	return f.textHits, nil
}

type memCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	version int64
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) GetJSON(_ context.Context, key string, dst any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

func (c *memCache) SetJSON(_ context.Context, key string, v any, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, err := json.Marshal(v)
	if err == nil {
		c.data[key] = raw
	}
}

func (c *memCache) Version(context.Context, string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

func (c *memCache) Bump(context.Context, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version++
}

type fakeSearcher struct {
	hits []string
	err  error
}

func (s *fakeSearcher) Index(context.Context, models.Product) error { return nil }
func (s *fakeSearcher) Remove(context.Context, string) error        { return nil }

func (s *fakeSearcher) Search(context.Context, string, int) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.hits, nil
}

var errSearchDown = errors.New("search down")

type fakeMedia struct {
	mu        sync.Mutex
	uploaded  []string
	destroyed []string
}

func (m *fakeMedia) Upload(_ context.Context, r io.Reader, filename string) (models.Media, error) {
	_, _ = io.Copy(io.Discard, r)
	m.mu.Lock()
	defer m.mu.Unlock()
	id := "products/" + filename
	m.uploaded = append(m.uploaded, id)
	return models.Media{URL: "https://cdn.test/" + filename, PublicID: id}, nil
}

func (m *fakeMedia) Destroy(_ context.Context, publicID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.destroyed = append(m.destroyed, publicID)
	return nil
}

func ptr[T any](v T) *T { return &v }
