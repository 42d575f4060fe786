package catalog

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"modestblooming-backend/models"
)

const (
	listingTTL     = 5 * time.Minute
	bestSellerTTL  = 10 * time.Minute
	bestSellerSize = 20
	searchLimit    = 20

	versionKey    = "catalog:version"
	bestSellerKey = "catalog:bestsellers"
)

// Cache is the read-through cache used for listings. A nil or disabled cache
// behaves as a permanent miss.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) bool
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration)
	Version(ctx context.Context, key string) int64
	Bump(ctx context.Context, key string)
}

// Searcher is an external full-text index over the catalog.
type Searcher interface {
	Index(ctx context.Context, p models.Product) error
	Remove(ctx context.Context, id string) error
	Search(ctx context.Context, q string, limit int) ([]string, error)
}

// MediaHost stores product images.
type MediaHost interface {
	Upload(ctx context.Context, r io.Reader, filename string) (models.Media, error)
	Destroy(ctx context.Context, publicID string) error
}

// Result is one page of products.
type Result struct {
	Items      []models.Product `json:"items"`
	Total      int64            `json:"total"`
	TotalPages int              `json:"totalPages"`
	Page       int              `json:"page"`
}

type Service struct {
	store    Store
	cache    Cache
	searcher Searcher
	media    MediaHost
	now      func() time.Time
}

type Option func(*Service)

func WithCache(c Cache) Option              { return func(s *Service) { s.cache = c } }
func WithSearcher(sr Searcher) Option       { return func(s *Service) { s.searcher = sr } }
func WithMedia(m MediaHost) Option          { return func(s *Service) { s.media = m } }
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns one page of products matching q. Out-of-range pages return an
// empty item list with the correct page count.
func (s *Service) List(ctx context.Context, q FilterQuery) (Result, error) {
	const op = "Service.List"

	key := s.cacheKey(ctx, "list", q.Canonical())
	var cached Result
	if s.cache != nil && s.cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}

	now := s.now()
	best, err := s.BestSellerIDs(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	filter := BuildQuery(q, now, best)
	total, err := s.store.Count(ctx, filter)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	page := Paginate(total, q.Page, q.Limit)
	items := []models.Product{}
	if page.InRange {
		items, err = s.store.Find(ctx, filter, SortFor(q.Sort), page.Skip, int64(page.Limit))
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", op, err)
		}
		if items == nil {
			items = []models.Product{}
		}
		Decorate(items, now, best)
	}

	res := Result{Items: items, Total: page.Total, TotalPages: page.TotalPages, Page: page.Number}
	if s.cache != nil {
		s.cache.SetJSON(ctx, key, res, listingTTL)
	}
	return res, nil
}

// BestSellerIDs returns the current best-seller set, cached for bestSellerTTL.
func (s *Service) BestSellerIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	var ids []primitive.ObjectID
	if s.cache != nil && s.cache.GetJSON(ctx, bestSellerKey, &ids) {
		return ids, nil
	}
	ids, err := s.store.BestSellerIDs(ctx, bestSellerSize)
	if err != nil {
		return nil, fmt.Errorf("Service.BestSellerIDs: %w", err)
	}
	if s.cache != nil {
		s.cache.SetJSON(ctx, bestSellerKey, ids, bestSellerTTL)
	}
	return ids, nil
}

func (s *Service) Options(ctx context.Context) (models.FilterOptions, error) {
	key := s.cacheKey(ctx, "options", "")
	var opts models.FilterOptions
	if s.cache != nil && s.cache.GetJSON(ctx, key, &opts) {
		return opts, nil
	}
	opts, err := s.store.Options(ctx)
	if err != nil {
		return opts, fmt.Errorf("Service.Options: %w", err)
	}
	if s.cache != nil {
		s.cache.SetJSON(ctx, key, opts, listingTTL)
	}
	return opts, nil
}

func (s *Service) BySlug(ctx context.Context, slug string) (models.Product, error) {
	return s.one(ctx, bson.M{"slug": slug})
}

func (s *Service) ByID(ctx context.Context, hex string) (models.Product, error) {
	id, err := ParseID(hex)
	if err != nil {
		return models.Product{}, err
	}
	return s.one(ctx, bson.M{"_id": id})
}

func (s *Service) one(ctx context.Context, filter bson.M) (models.Product, error) {
	p, err := s.store.FindOne(ctx, filter)
	if err != nil {
		return p, err
	}
	best, err := s.BestSellerIDs(ctx)
	if err != nil {
		return p, err
	}
	ps := []models.Product{p}
	Decorate(ps, s.now(), best)
	return ps[0], nil
}

// Search matches q against the catalog. The search engine is used when
// configured; on failure the store's own text match answers instead.
func (s *Service) Search(ctx context.Context, q string) ([]models.Product, error) {
	const op = "Service.Search"
	log := slog.With("op", op)

	q = strings.TrimSpace(q)
	if q == "" {
		return []models.Product{}, nil
	}

	var (
		products []models.Product
		err      error
	)
	if s.searcher != nil {
		products, err = s.searchIndex(ctx, q)
		if err != nil {
			log.Warn("search index unavailable, falling back to store", "err", err)
		}
	}
	if s.searcher == nil || err != nil {
		products, err = s.store.TextSearch(ctx, q, searchLimit)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	if products == nil {
		products = []models.Product{}
	}

	best, err := s.BestSellerIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	Decorate(products, s.now(), best)
	return products, nil
}

func (s *Service) searchIndex(ctx context.Context, q string) ([]models.Product, error) {
	hits, err := s.searcher.Search(ctx, q, searchLimit)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(hits))
	for _, h := range hits {
		if id, err := primitive.ObjectIDFromHex(h); err == nil {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	found, err := s.store.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, nil, 0, 0)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]models.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	ordered := make([]models.Product, 0, len(found))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}

// Create stores a new product built from in.
func (s *Service) Create(ctx context.Context, in models.ProductInput) (models.Product, error) {
	const op = "Service.Create"

	now := s.now()
	p := models.Product{
		Name:          strings.TrimSpace(in.Name),
		Description:   in.Description,
		Price:         in.Price,
		DiscountPrice: in.DiscountPrice,
		Category:      strings.TrimSpace(in.Category),
		Tags:          in.Tags,
		Colors:        in.Colors,
		Media:         in.Media,
		InStock:       in.InStock == nil || *in.InStock,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	normalize(&p)
	if err := ValidatePricing(p); err != nil {
		return p, err
	}

	uploaded, err := s.uploadEncoded(ctx, in.MediaBase64)
	if err != nil {
		return p, fmt.Errorf("%s: %w", op, err)
	}
	p.Media = append(p.Media, uploaded...)

	if p.Slug, err = s.uniqueSlug(ctx, p.Name, ""); err != nil {
		s.discard(ctx, uploaded)
		return p, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.store.Insert(ctx, &p); err != nil {
		s.discard(ctx, uploaded)
		return p, fmt.Errorf("%s: %w", op, err)
	}

	s.changed(p, false)
	return p, nil
}

// Update replaces the editable fields of product hex with in.
func (s *Service) Update(ctx context.Context, hex string, in models.ProductInput) (models.Product, error) {
	const op = "Service.Update"

	id, err := ParseID(hex)
	if err != nil {
		return models.Product{}, err
	}
	p, err := s.store.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		return p, err
	}

	oldName := p.Name
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Price = in.Price
	p.DiscountPrice = in.DiscountPrice
	p.Category = strings.TrimSpace(in.Category)
	p.Tags = in.Tags
	if in.Colors != nil {
		p.Colors = in.Colors
	}
	if in.Media != nil {
		p.Media = in.Media
	}
	if in.InStock != nil {
		p.InStock = *in.InStock
	}
	p.UpdatedAt = s.now()
	normalize(&p)
	if err := ValidatePricing(p); err != nil {
		return p, err
	}

	uploaded, err := s.uploadEncoded(ctx, in.MediaBase64)
	if err != nil {
		return p, fmt.Errorf("%s: %w", op, err)
	}
	p.Media = append(p.Media, uploaded...)

	if p.Name != oldName {
		if p.Slug, err = s.uniqueSlug(ctx, p.Name, p.Slug); err != nil {
			s.discard(ctx, uploaded)
			return p, fmt.Errorf("%s: %w", op, err)
		}
	}
	if err := s.store.Replace(ctx, p); err != nil {
		s.discard(ctx, uploaded)
		if errors.Is(err, ErrNotFound) {
			return p, err
		}
		return p, fmt.Errorf("%s: %w", op, err)
	}

	s.changed(p, false)
	return p, nil
}

// Delete removes product hex together with its hosted media.
func (s *Service) Delete(ctx context.Context, hex string) error {
	id, err := ParseID(hex)
	if err != nil {
		return err
	}
	p, err := s.store.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("Service.Delete: %w", err)
	}

	s.changed(p, true)
	return nil
}

// Clone creates a new product seeded from product hex, carrying color as its
// only variant.
func (s *Service) Clone(ctx context.Context, hex string, in models.CloneInput) (models.Product, error) {
	const op = "Service.Clone"

	id, err := ParseID(hex)
	if err != nil {
		return models.Product{}, err
	}
	src, err := s.store.FindOne(ctx, bson.M{"_id": id})
	if err != nil {
		return src, err
	}

	now := s.now()
	p := src
	p.ID = primitive.NilObjectID
	p.Name = strings.TrimSpace(in.Name)
	if p.Name == "" {
		p.Name = strings.TrimSpace(src.Name + " " + in.Color.Name)
	}
	p.Colors = []models.ColorVariant{in.Color}
	p.Tags = append([]string(nil), src.Tags...)
	p.Media = append([]models.Media(nil), src.Media...)
	if len(in.Color.Media) > 0 {
		p.Media = append([]models.Media(nil), in.Color.Media...)
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	normalize(&p)
	if err := ValidatePricing(p); err != nil {
		return p, err
	}

	if p.Slug, err = s.uniqueSlug(ctx, p.Name, ""); err != nil {
		return p, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.store.Insert(ctx, &p); err != nil {
		return p, fmt.Errorf("%s: %w", op, err)
	}

	s.changed(p, false)
	return p, nil
}

// uniqueSlug derives a free slug from name. current is the product's own
// slug, which never counts as taken.
func (s *Service) uniqueSlug(ctx context.Context, name, current string) (string, error) {
	base := Slugify(name)
	if base == "" {
		base = "product"
	}
	for i := 1; i <= 20; i++ {
		candidate := base
		if i > 1 {
			candidate = base + "-" + strconv.Itoa(i)
		}
		if current != "" && candidate == current {
			return candidate, nil
		}
		taken, err := s.store.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return base + "-" + uuid.NewString()[:8], nil
}

func (s *Service) uploadEncoded(ctx context.Context, encoded []string) ([]models.Media, error) {
	if len(encoded) == 0 || s.media == nil {
		return nil, nil
	}
	out := make([]models.Media, 0, len(encoded))
	for i, raw := range encoded {
		data, ext, err := decodeDataURI(raw)
		if err != nil {
			s.discard(ctx, out)
			return nil, fmt.Errorf("media %d: %w", i, err)
		}
		m, err := s.media.Upload(ctx, bytes.NewReader(data), uuid.NewString()+ext)
		if err != nil {
			s.discard(ctx, out)
			return nil, fmt.Errorf("media %d: %w", i, err)
		}
		out = append(out, m)
	}
	return out, nil
}

// discard destroys media uploaded for a write that then failed.
func (s *Service) discard(ctx context.Context, uploaded []models.Media) {
	if len(uploaded) == 0 || s.media == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	for _, m := range uploaded {
		if m.PublicID == "" {
			continue
		}
		if err := s.media.Destroy(ctx, m.PublicID); err != nil {
			slog.Warn("orphaned media not destroyed", "op", "Service.discard", "publicId", m.PublicID, "err", err)
		}
	}
}

// decodeDataURI accepts "data:image/png;base64,...." or bare base64.
func decodeDataURI(raw string) ([]byte, string, error) {
	ext := ".jpg"
	payload := raw
	if strings.HasPrefix(raw, "data:") {
		header, body, ok := strings.Cut(raw, ",")
		if !ok {
			return nil, "", errors.New("malformed data uri")
		}
		payload = body
		mime := strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		if sub, ok := strings.CutPrefix(mime, "image/"); ok && sub != "" {
			ext = "." + sub
		}
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode base64: %w", err)
	}
	return data, ext, nil
}

// changed invalidates cached listings and pushes the change to the search index
// and media host in the background.
func (s *Service) changed(p models.Product, deleted bool) {
	if s.cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		s.cache.Bump(ctx, versionKey)
		cancel()
	}
	if s.searcher == nil && !(deleted && s.media != nil) {
		return
	}

	go func() {
		const op = "Service.changed"
		log := slog.With("op", op, "product", p.ID.Hex())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if s.searcher != nil {
			var err error
			if deleted {
				err = s.searcher.Remove(ctx, p.ID.Hex())
			} else {
				err = s.searcher.Index(ctx, p)
			}
			if err != nil {
				log.Warn("search index update failed", "err", err)
			}
		}
		if deleted && s.media != nil {
			for _, id := range mediaIDs(p) {
				if err := s.media.Destroy(ctx, id); err != nil {
					log.Warn("media destroy failed", "publicId", id, "err", err)
				}
			}
		}
	}()
}

func mediaIDs(p models.Product) []string {
	var ids []string
	add := func(ms []models.Media) {
		for _, m := range ms {
			if m.PublicID != "" {
				ids = append(ids, m.PublicID)
			}
		}
	}
	add(p.Media)
	for _, c := range p.Colors {
		add(c.Media)
	}
	return ids
}

func (s *Service) cacheKey(ctx context.Context, kind, rest string) string {
	var v int64
	if s.cache != nil {
		v = s.cache.Version(ctx, versionKey)
	}
	return "catalog:v" + strconv.FormatInt(v, 10) + ":" + kind + ":" + rest
}
