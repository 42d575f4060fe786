package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v83/webhook"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"modestblooming-backend/catalog"
	"modestblooming-backend/config"
	"modestblooming-backend/controllers"
	"modestblooming-backend/models"
	"modestblooming-backend/orders"
	"modestblooming-backend/routes"
	"modestblooming-backend/services"
)

const testKey = "0123456789abcdef0123456789abcdef"

type productStore struct {
	mu       sync.Mutex
	products []models.Product
}

func (s *productStore) Find(_ context.Context, filter bson.M, _ bson.D, skip, limit int64) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if skip >= int64(len(s.products)) {
		return []models.Product{}, nil
	}
	out := s.products[skip:]
	if limit > 0 && limit < int64(len(out)) {
		out = out[:limit]
	}
	return append([]models.Product(nil), out...), nil
}

func (s *productStore) Count(context.Context, bson.M) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.products)), nil
}

func (s *productStore) FindOne(_ context.Context, filter bson.M) (models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if id, ok := filter["_id"].(primitive.ObjectID); ok && p.ID == id {
			return p, nil
		}
		if slug, ok := filter["slug"].(string); ok && p.Slug == slug {
			return p, nil
		}
	}
	return models.Product{}, catalog.ErrNotFound
}

func (s *productStore) Insert(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = primitive.NewObjectID()
	s.products = append(s.products, *p)
	return nil
}

func (s *productStore) Replace(context.Context, models.Product) error { return nil }

func (s *productStore) Delete(_ context.Context, id primitive.ObjectID) (models.Product, error) {
	return models.Product{}, catalog.ErrNotFound
}

func (s *productStore) SlugExists(context.Context, string) (bool, error) { return false, nil }

func (s *productStore) Options(context.Context) (models.FilterOptions, error) {
	return models.FilterOptions{Categories: []string{"dresses"}}, nil
}

func (s *productStore) BestSellerIDs(context.Context, int) ([]primitive.ObjectID, error) {
	return nil, nil
}

func (s *productStore) TextSearch(context.Context, string, int64) ([]models.Product, error) {
	return []models.Product{}, nil
}

type mediaHost struct {
	uploaded []string
}

func (m *mediaHost) Upload(_ context.Context, r io.Reader, filename string) (models.Media, error) {
	_, _ = io.Copy(io.Discard, r)
	m.uploaded = append(m.uploaded, filename)
	return models.Media{URL: "https://cdn.test/" + filename, PublicID: "products/" + filename}, nil
}

func (m *mediaHost) Destroy(context.Context, string) error { return nil }

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type harness struct {
	router   *gin.Engine
	store    *productStore
	media    *mediaHost
	tokens   *services.TokenMaker
	cache    *services.Cache
	adminJWT string
	userJWT  string
}

func newHarness(t *testing.T, withMedia bool, products ...models.Product) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := services.NewTokenMaker([]byte(testKey), time.Hour)
	require.NoError(t, err)

	store := &productStore{products: products}
	h := &harness{store: store, tokens: tokens, cache: services.NewCache(nil)}

	ctrl := &controllers.Controller{
		Catalog: catalog.NewService(store),
		Orders:  orders.NewService(nil, nil, nil, nil, nil, orders.Config{}),
		Tokens:  tokens,
		Cache:   h.cache,
	}
	if withMedia {
		h.media = &mediaHost{}
		ctrl.Media = h.media
	}

	cfg := &config.AppConfig{Env: "test", CORSOrigins: []string{"http://localhost:3000"}}
	h.router = routes.Setup(ctrl, cfg, slogDiscard())

	h.adminJWT, _, err = tokens.Issue(primitive.NewObjectID().Hex(), models.RoleAdmin)
	require.NoError(t, err)
	h.userJWT, _, err = tokens.Issue(primitive.NewObjectID().Hex(), models.RoleCustomer)
	require.NoError(t, err)
	return h
}

func (h *harness) do(method, target, token string, body any) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func sampleProducts(n int) []models.Product {
	out := make([]models.Product, n)
	for i := range out {
		out[i] = models.Product{
			ID:        primitive.NewObjectID(),
			Name:      "Linen Abaya",
			Slug:      "linen-abaya",
			Price:     80,
			Category:  "abayas",
			InStock:   true,
			CreatedAt: time.Now().Add(-time.Duration(i) * 24 * time.Hour),
		}
	}
	return out
}

func TestProductListing(t *testing.T) {
	h := newHarness(t, false, sampleProducts(3)...)

	w := h.do(http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Len(t, body["products"], 3)
	assert.EqualValues(t, 1, body["totalPages"])
	assert.EqualValues(t, 3, body["total"])

	w = h.do(http.MethodGet, "/api/products?page=9", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["products"])
}

func TestFilterEmptyCatalog(t *testing.T) {
	h := newHarness(t, false)

	w := h.do(http.MethodGet, "/api/products/filter?category=none", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"items":[]`)
	assert.EqualValues(t, 0, decode(t, w)["totalPages"])
}

func TestProductLookup(t *testing.T) {
	products := sampleProducts(1)
	h := newHarness(t, false, products...)

	tests := []struct {
		name   string
		target string
		status int
	}{
		{"ByID", "/api/products/" + products[0].ID.Hex(), http.StatusOK},
		{"BySlug", "/api/products/slug/linen-abaya", http.StatusOK},
		{"BadID", "/api/products/not-an-id", http.StatusBadRequest},
		{"UnknownID", "/api/products/" + primitive.NewObjectID().Hex(), http.StatusNotFound},
		{"UnknownSlug", "/api/products/slug/missing", http.StatusNotFound},
		{"FilterOptions", "/api/products/filter-options", http.StatusOK},
		{"NoRoute", "/api/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := h.do(http.MethodGet, tt.target, "", nil)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestCreateProductAccess(t *testing.T) {
	h := newHarness(t, false)
	valid := gin.H{"name": "Silk Hijab", "price": 25, "category": "hijabs"}

	w := h.do(http.MethodPost, "/api/products", "", valid)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(http.MethodPost, "/api/products", h.userJWT, valid)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(http.MethodPost, "/api/products", h.adminJWT, valid)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	product := decode(t, w)["product"].(map[string]any)
	assert.Equal(t, "silk-hijab", product["slug"])
	assert.Equal(t, true, product["inStock"])
}

func TestCreateProductRejectsDiscountAbovePrice(t *testing.T) {
	h := newHarness(t, false)

	w := h.do(http.MethodPost, "/api/products", h.adminJWT, gin.H{
		"name": "Silk Hijab", "price": 25, "category": "hijabs", "discountPrice": 25,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "discount")
	assert.Empty(t, h.store.products)
}

func TestAuthValidation(t *testing.T) {
	h := newHarness(t, false)

	tests := []struct {
		name   string
		target string
		body   any
	}{
		{"RegisterShortPassword", "/api/auth/register", gin.H{"name": "A", "email": "a@b.co", "password": "short"}},
		{"RegisterBadEmail", "/api/auth/register", gin.H{"name": "A", "email": "nope", "password": "longenough"}},
		{"LoginMissingPassword", "/api/auth/login", gin.H{"email": "a@b.co"}},
		{"ResetMissingToken", "/api/auth/reset-password", gin.H{"password": "longenough"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := h.do(http.MethodPost, tt.target, "", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newHarness(t, false)

	for _, target := range []string{"/api/cart", "/api/wishlist", "/api/orders", "/api/auth/me"} {
		w := h.do(http.MethodGet, target, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, target)
	}
	w := h.do(http.MethodGet, "/api/admin/stats", h.userJWT, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	h := newHarness(t, false)

	w := h.do(http.MethodPost, "/api/auth/logout", h.userJWT, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = h.do(http.MethodPost, "/api/auth/logout", h.userJWT, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginRateLimited(t *testing.T) {
	h := newHarness(t, false)

	var w *httptest.ResponseRecorder
	for i := 0; i < 11; i++ {
		w = h.do(http.MethodPost, "/api/auth/login", "", gin.H{})
	}
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestPaymentWebhookWithoutStripe(t *testing.T) {
	h := newHarness(t, false)

	w := h.do(http.MethodPost, "/api/payments/webhook", "", gin.H{"type": "payment_intent.succeeded"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestUpdateUserRole(t *testing.T) {
	h := newHarness(t, false)
	target := "/api/admin/users/" + primitive.NewObjectID().Hex() + "/role"

	w := h.do(http.MethodPut, target, h.userJWT, gin.H{"role": models.RoleAdmin})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(http.MethodPut, target, "", gin.H{"role": models.RoleAdmin})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(http.MethodPut, "/api/admin/users/nope/role", h.adminJWT, gin.H{"role": models.RoleAdmin})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPut, target, h.adminJWT, gin.H{"role": "owner"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "customer or admin")

	self := primitive.NewObjectID()
	selfJWT, _, err := h.tokens.Issue(self.Hex(), models.RoleAdmin)
	require.NoError(t, err)
	w = h.do(http.MethodPut, "/api/admin/users/"+self.Hex()+"/role", selfJWT, gin.H{"role": models.RoleCustomer})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "own role")
}

func TestRevokedUserLosesAccess(t *testing.T) {
	h := newHarness(t, false)
	user := primitive.NewObjectID()
	jwt, _, err := h.tokens.Issue(user.Hex(), models.RoleAdmin)
	require.NoError(t, err)

	w := h.do(http.MethodPut, "/api/admin/users/nope/role", jwt, gin.H{"role": models.RoleCustomer})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	require.NoError(t, h.cache.RevokeUser(context.Background(), user.Hex(), h.tokens.TTL()))
	w = h.do(http.MethodPut, "/api/admin/users/nope/role", jwt, gin.H{"role": models.RoleCustomer})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	fresh, _, err := h.tokens.Issue(user.Hex(), models.RoleAdmin)
	require.NoError(t, err)
	w = h.do(http.MethodPut, "/api/admin/users/nope/role", fresh, gin.H{"role": models.RoleCustomer})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentWebhookRefusesEmptySecret(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens, err := services.NewTokenMaker([]byte(testKey), time.Hour)
	require.NoError(t, err)

	payments := services.NewStripePayments("sk_test", "")
	ctrl := &controllers.Controller{
		Catalog: catalog.NewService(&productStore{}),
		Orders:  orders.NewService(nil, nil, nil, payments, nil, orders.Config{}),
		Tokens:  tokens,
		Cache:   services.NewCache(nil),
	}
	router := routes.Setup(ctrl, &config.AppConfig{Env: "test", CORSOrigins: []string{"http://localhost:3000"}}, slogDiscard())

	payload := []byte(`{"id":"evt_1","object":"event","type":"payment_intent.succeeded",` +
		`"data":{"object":{"id":"pi_1","object":"payment_intent","metadata":{"order_id":"` +
		primitive.NewObjectID().Hex() + `"}}}}`)
	forged := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    "",
		Timestamp: time.Now(),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", forged.Header)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func uploadRequest(t *testing.T, filename string, size int) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte{0x89}, size))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadImage(t *testing.T) {
	h := newHarness(t, true)

	t.Run("Accepted", func(t *testing.T) {
		req := uploadRequest(t, "look.PNG", 512)
		req.Header.Set("Authorization", "Bearer "+h.adminJWT)
		w := httptest.NewRecorder()
		h.router.ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		body := decode(t, w)
		assert.True(t, strings.HasPrefix(body["url"].(string), "https://cdn.test/"))
		require.Len(t, h.media.uploaded, 1)
		assert.True(t, strings.HasSuffix(h.media.uploaded[0], ".PNG"))
	})

	t.Run("WrongExtension", func(t *testing.T) {
		req := uploadRequest(t, "notes.txt", 16)
		req.Header.Set("Authorization", "Bearer "+h.adminJWT)
		w := httptest.NewRecorder()
		h.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("NotConfigured", func(t *testing.T) {
		bare := newHarness(t, false)
		req := uploadRequest(t, "look.png", 16)
		req.Header.Set("Authorization", "Bearer "+bare.adminJWT)
		w := httptest.NewRecorder()
		bare.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
