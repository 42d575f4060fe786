package cart

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"modestblooming-backend/catalog"
	"modestblooming-backend/models"
)

func TestPutLinePipeline(t *testing.T) {
	id := primitive.NewObjectID()

	p := putLinePipeline(models.CartItem{ProductID: id, Color: "Sage", Quantity: 500}, MergeAdd)
	require.Len(t, p, 2)
	set := p[1][0].Value.(bson.M)
	assert.Equal(t, "$$NOW", set["updatedAt"])

	cond := set["items"].(bson.M)["$cond"].(bson.M)
	added := cond["else"].(bson.M)["$concatArrays"].(bson.A)[1].(bson.A)[0].(bson.M)
	assert.Equal(t, id, added["productId"])
	assert.Equal(t, MaxQuantity, added["quantity"])
	assert.Equal(t, bson.M{"$literal": "Sage"}, added["color"])

	match := lineMatch(id, "Sage")["$and"].(bson.A)[1].(bson.M)["$eq"].(bson.A)
	assert.Equal(t, bson.M{"$literal": "sage"}, match[1])

	inner := cond["then"].(bson.M)["$map"].(bson.M)["in"].(bson.M)["$cond"].(bson.A)[1].(bson.M)
	qty := inner["$mergeObjects"].(bson.A)[1].(bson.M)["quantity"].(bson.M)["$min"].(bson.A)
	assert.Contains(t, qty[0], "$add")
	assert.Equal(t, MaxQuantity, qty[1])

	p = putLinePipeline(models.CartItem{ProductID: id, Quantity: 2}, MergeMax)
	cond = p[1][0].Value.(bson.M)["items"].(bson.M)["$cond"].(bson.M)
	added = cond["else"].(bson.M)["$concatArrays"].(bson.A)[1].(bson.A)[0].(bson.M)
	assert.NotContains(t, added, "color")
	inner = cond["then"].(bson.M)["$map"].(bson.M)["in"].(bson.M)["$cond"].(bson.A)[1].(bson.M)
	qty = inner["$mergeObjects"].(bson.A)[1].(bson.M)["quantity"].(bson.M)["$min"].(bson.A)
	assert.Contains(t, qty[0], "$max")
}

func TestReleasePipeline(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	p := releasePipeline([]models.CartItem{{ProductID: a, Quantity: 2}, {ProductID: b, Color: "rose", Quantity: 1}})
	require.Len(t, p, 1)

	filter := p[0][0].Value.(bson.M)["items"].(bson.M)["$filter"].(bson.M)
	assert.Equal(t, bson.M{"$gt": bson.A{"$$it.quantity", 0}}, filter["cond"])

	in := filter["input"].(bson.M)["$map"].(bson.M)["in"].(bson.M)["$mergeObjects"].(bson.A)[1].(bson.M)
	sub := in["quantity"].(bson.M)["$subtract"].(bson.A)
	sw := sub[1].(bson.M)["$switch"].(bson.M)
	assert.Len(t, sw["branches"], 2)
	assert.Equal(t, 0, sw["default"])
}

func TestColorQuery(t *testing.T) {
	assert.Equal(t, bson.M{"$in": bson.A{nil, ""}}, colorQuery(""))
	assert.Equal(t, primitive.Regex{Pattern: `^dusty\.rose$`, Options: "i"}, colorQuery("dusty.rose"))
}

type memStore struct {
	mu    sync.Mutex
	items map[primitive.ObjectID][]models.CartItem
	wish  map[primitive.ObjectID][]primitive.ObjectID
}

func newMemStore() *memStore {
	return &memStore{
		items: map[primitive.ObjectID][]models.CartItem{},
		wish:  map[primitive.ObjectID][]primitive.ObjectID{},
	}
}

func (m *memStore) Items(_ context.Context, u primitive.ObjectID) ([]models.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.CartItem{}, m.items[u]...), nil
}

func (m *memStore) PutLine(_ context.Context, u primitive.ObjectID, item models.CartItem, how LineMerge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, it := range m.items[u] {
		if sameLine(it, item.ProductID, item.Color) {
			if how == MergeAdd {
				m.items[u][i].Quantity = capQty(it.Quantity + item.Quantity)
			} else {
				m.items[u][i].Quantity = capQty(max(it.Quantity, item.Quantity))
			}
			return nil
		}
	}
	item.Quantity = capQty(item.Quantity)
	m.items[u] = append(m.items[u], item)
	return nil
}

func (m *memStore) SetLine(_ context.Context, u, id primitive.ObjectID, color string, qty int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, it := range m.items[u] {
		if sameLine(it, id, color) {
			m.items[u][i].Quantity = capQty(qty)
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) RemoveLine(_ context.Context, u, id primitive.ObjectID, color string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.CartItem, 0, len(m.items[u]))
	for _, it := range m.items[u] {
		if !sameLine(it, id, color) {
			out = append(out, it)
		}
	}
	found := len(out) < len(m.items[u])
	m.items[u] = out
	return found, nil
}

func (m *memStore) Release(_ context.Context, u primitive.ObjectID, lines []models.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.CartItem, 0, len(m.items[u]))
	for _, it := range m.items[u] {
		for _, l := range lines {
			if sameLine(it, l.ProductID, l.Color) {
				it.Quantity -= l.Quantity
			}
		}
		if it.Quantity > 0 {
			out = append(out, it)
		}
	}
	m.items[u] = out
	return nil
}

func (m *memStore) Clear(_ context.Context, u primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[u] = nil
	return nil
}

func (m *memStore) WishlistIDs(_ context.Context, u primitive.ObjectID) ([]primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]primitive.ObjectID{}, m.wish[u]...), nil
}

func (m *memStore) AddWishes(_ context.Context, u primitive.ObjectID, ids ...primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		dup := false
		for _, have := range m.wish[u] {
			if have == id {
				dup = true
			}
		}
		if !dup {
			m.wish[u] = append(m.wish[u], id)
		}
	}
	return nil
}

func (m *memStore) RemoveWish(_ context.Context, u, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.wish[u][:0]
	for _, have := range m.wish[u] {
		if have != id {
			out = append(out, have)
		}
	}
	m.wish[u] = out
	return nil
}

type productList []models.Product

func (l productList) Find(_ context.Context, filter bson.M, _ bson.D, _, _ int64) ([]models.Product, error) {
	ids := filter["_id"].(bson.M)["$in"].([]primitive.ObjectID)
	var out []models.Product
	for _, id := range ids {
		for _, p := range l {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

type mapCache struct {
	data    map[string]any
	deletes int
}

func (c *mapCache) GetJSON(_ context.Context, key string, dst any) bool {
	v, ok := c.data[key]
	if !ok {
		return false
	}
	*dst.(*[]models.Product) = v.([]models.Product)
	return true
}

func (c *mapCache) SetJSON(_ context.Context, key string, v any, _ time.Duration) {
	c.data[key] = v
}

func (c *mapCache) Delete(_ context.Context, keys ...string) {
	for _, k := range keys {
		delete(c.data, k)
	}
	c.deletes++
}

func fixtures() productList {
	return productList{
		{
			ID:            primitive.NewObjectID(),
			Name:          "Linen Dress",
			Price:         40,
			DiscountPrice: func() *float64 { v := 35.0; return &v }(),
			Colors:        []models.ColorVariant{{Name: "sage"}},
		},
		{ID: primitive.NewObjectID(), Name: "Hijab", Price: 12.5},
	}
}

func TestServiceCart(t *testing.T) {
	ctx := context.Background()
	products := fixtures()
	user := primitive.NewObjectID()
	svc := NewService(newMemStore(), products, nil)

	v, err := svc.Add(ctx, user, models.CartItemRequest{ProductID: products[0].ID.Hex(), Color: "sage", Quantity: 2})
	require.NoError(t, err)
	v, err = svc.Add(ctx, user, models.CartItemRequest{ProductID: products[1].ID.Hex(), Quantity: 3})
	require.NoError(t, err)

	require.Len(t, v.Items, 2)
	assert.Equal(t, 35.0, v.Items[0].UnitPrice)
	assert.Equal(t, 70.0, v.Items[0].LineTotal)
	assert.Equal(t, 37.5, v.Items[1].LineTotal)
	assert.Equal(t, 107.5, v.Subtotal)
	assert.Equal(t, 5, v.Count)

	_, err = svc.Add(ctx, user, models.CartItemRequest{ProductID: products[0].ID.Hex(), Color: "black", Quantity: 1})
	assert.ErrorIs(t, err, catalog.ErrUnknownColor)
	_, err = svc.Add(ctx, user, models.CartItemRequest{ProductID: primitive.NewObjectID().Hex(), Quantity: 1})
	assert.ErrorIs(t, err, catalog.ErrNotFound)
	_, err = svc.Add(ctx, user, models.CartItemRequest{ProductID: "zzz", Quantity: 1})
	assert.ErrorIs(t, err, catalog.ErrInvalidID)

	v, err = svc.Update(ctx, user, products[1].ID.Hex(), "", 1)
	require.NoError(t, err)
	assert.Equal(t, 82.5, v.Subtotal)

	_, err = svc.Update(ctx, user, products[1].ID.Hex(), "navy", 1)
	assert.ErrorIs(t, err, ErrItemNotFound)

	v, err = svc.Add(ctx, user, models.CartItemRequest{ProductID: products[0].ID.Hex(), Color: "Sage", Quantity: 500})
	require.NoError(t, err)
	assert.Equal(t, MaxQuantity, v.Items[0].Quantity)
	v, err = svc.Update(ctx, user, products[0].ID.Hex(), "SAGE", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, v.Items[0].Quantity)

	v, err = svc.Remove(ctx, user, products[0].ID.Hex(), "sage")
	require.NoError(t, err)
	assert.Len(t, v.Items, 1)

	v, err = svc.Remove(ctx, user, products[0].ID.Hex(), "sage")
	require.NoError(t, err)
	assert.Len(t, v.Items, 1)

	v, err = svc.Update(ctx, user, products[1].ID.Hex(), "", 0)
	require.NoError(t, err)
	assert.Empty(t, v.Items)
	_, err = svc.Update(ctx, user, products[1].ID.Hex(), "", 0)
	assert.ErrorIs(t, err, ErrItemNotFound)

	require.NoError(t, svc.Clear(ctx, user))
	v, err = svc.Get(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, v.Items)
	assert.Zero(t, v.Subtotal)
}

func TestServiceSync(t *testing.T) {
	ctx := context.Background()
	products := fixtures()
	user := primitive.NewObjectID()
	store := newMemStore()
	store.items[user] = []models.CartItem{{ProductID: products[1].ID, Quantity: 5}}
	svc := NewService(store, products, nil)

	v, err := svc.Sync(ctx, user, []models.CartItemRequest{
		{ProductID: products[1].ID.Hex(), Quantity: 2},
		{ProductID: products[0].ID.Hex(), Color: "sage", Quantity: 1},
		{ProductID: primitive.NewObjectID().Hex(), Quantity: 1},
		{ProductID: "bad", Quantity: 1},
	})
	require.NoError(t, err)

	require.Len(t, v.Items, 2)
	assert.Equal(t, 5, v.Items[0].Quantity)
	assert.Equal(t, 1, v.Items[1].Quantity)
	assert.Len(t, store.items[user], 2)
}

func TestServiceSyncDropsStaleLines(t *testing.T) {
	ctx := context.Background()
	products := fixtures()
	user := primitive.NewObjectID()
	store := newMemStore()
	store.items[user] = []models.CartItem{
		{ProductID: primitive.NewObjectID(), Quantity: 1},
		{ProductID: products[0].ID, Color: "black", Quantity: 1},
	}
	svc := NewService(store, products, nil)

	v, err := svc.Sync(ctx, user, []models.CartItemRequest{{ProductID: products[1].ID.Hex(), Quantity: 4}})
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
	assert.Equal(t, products[1].ID, v.Items[0].Product.ID)
	assert.Len(t, store.items[user], 1)
}

func TestServiceConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	products := fixtures()
	user := primitive.NewObjectID()
	store := newMemStore()
	svc := NewService(store, products, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := models.CartItemRequest{ProductID: products[i%2].ID.Hex(), Quantity: 1}
			if i%2 == 0 {
				req.Color = "sage"
			}
			_, err := svc.Add(ctx, user, req)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	v, err := svc.Get(ctx, user)
	require.NoError(t, err)
	require.Len(t, v.Items, 2)
	assert.Equal(t, 20, v.Count)
}

func TestServiceWishlist(t *testing.T) {
	ctx := context.Background()
	products := fixtures()
	user := primitive.NewObjectID()
	cache := &mapCache{data: map[string]any{}}
	svc := NewService(newMemStore(), products, cache)

	list, err := svc.AddWish(ctx, user, products[1].ID.Hex())
	require.NoError(t, err)
	require.Len(t, list, 1)

	list, err = svc.SyncWishlist(ctx, user, []string{products[0].ID.Hex(), products[1].ID.Hex(), "bad"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, products[1].ID, list[0].ID)

	list, err = svc.RemoveWish(ctx, user, products[1].ID.Hex())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, products[0].ID, list[0].ID)
	assert.Equal(t, 3, cache.deletes)

	_, err = svc.AddWish(ctx, user, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}
