package catalog_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/backend-boutique/internal/catalog"
)

// memStore is an in-memory catalog.Store used by the service and handler tests.
type memStore struct {
	mu         sync.Mutex
	products   map[int64]catalog.Product
	categories map[int64]catalog.Category
	cities     []catalog.DeliveryCity
	nextID     int64
	calls      map[string]int
}

func newMemStore() *memStore {
	return &memStore{
		products:   map[int64]catalog.Product{},
		categories: map[int64]catalog.Category{},
		nextID:     100,
		calls:      map[string]int{},
	}
}

func (m *memStore) called(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *memStore) track(name string) {
	m.calls[name]++
}

func (m *memStore) put(p catalog.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
}

func (m *memStore) ListProducts(_ context.Context, f catalog.ProductFilter) ([]catalog.Product, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.track("ListProducts")
	var matched []catalog.Product
	for _, p := range m.products {
		if f.InStockOnly && !p.InStock {
			continue
		}
		if f.Category != "" && strings.ToLower(strings.TrimSpace(p.Category)) != strings.ToLower(f.Category) {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Search)) {
			continue
		}
		if f.Featured && !p.Featured {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	total := int64(len(matched))
	start := (f.Page - 1) * f.Limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (m *memStore) GetProduct(_ context.Context, id int64) (catalog.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.track("GetProduct")
	p, ok := m.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func (m *memStore) ListVariants(_ context.Context, productID int64) ([]catalog.Variant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	variants := append([]catalog.Variant(nil), p.Variants...)
	sort.SliceStable(variants, func(i, j int) bool { return variants[i].Size < variants[j].Size })
	return variants, nil
}

func (m *memStore) fromInput(id int64, in catalog.ProductInput) catalog.Product {
	p := catalog.Product{
		ID:             id,
		Name:           in.Name,
		Description:    in.Description,
		Price:          in.Price,
		PromotionPrice: in.PromotionPrice,
		IsOnPromotion:  in.IsOnPromotion,
		Image1:         in.Image1,
		Category:       in.Category,
		Featured:       in.Featured,
		InStock:        in.InStock == nil || *in.InStock,
		CreatedAt:      time.Now(),
	}
	for i, v := range in.Variants {
		p.Variants = append(p.Variants, catalog.Variant{
			ID: int64(i + 1), ProductID: id, Size: v.Size, StockQuantity: v.StockQuantity, Color: v.Color, ImageURL: v.ImageURL,
		})
	}
	return p
}

func (m *memStore) CreateProduct(_ context.Context, in catalog.ProductInput) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.products[m.nextID] = m.fromInput(m.nextID, in)
	return m.nextID, nil
}

func (m *memStore) UpdateProduct(_ context.Context, id int64, in catalog.ProductInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return catalog.ErrNotFound
	}
	m.products[id] = m.fromInput(id, in)
	return nil
}

func (m *memStore) DeleteProduct(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return catalog.ErrNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *memStore) ListCategories(context.Context) ([]catalog.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.track("ListCategories")
	out := []catalog.Category{}
	for _, c := range m.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) GetCategory(_ context.Context, id int64) (catalog.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok {
		return catalog.Category{}, catalog.ErrNotFound
	}
	return c, nil
}

func (m *memStore) CreateCategory(_ context.Context, in catalog.CategoryInput) (catalog.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	c := catalog.Category{ID: m.nextID, Name: in.Name, Image: in.Image, Description: in.Description, CreatedAt: time.Now()}
	m.categories[c.ID] = c
	return c, nil
}

func (m *memStore) UpdateCategory(_ context.Context, id int64, in catalog.CategoryInput) (catalog.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok {
		return catalog.Category{}, catalog.ErrNotFound
	}
	c.Name, c.Image, c.Description = in.Name, in.Image, in.Description
	m.categories[id] = c
	return c, nil
}

func (m *memStore) DeleteCategory(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[id]; !ok {
		return catalog.ErrNotFound
	}
	delete(m.categories, id)
	return nil
}

func (m *memStore) ListDeliveryCities(context.Context) ([]catalog.DeliveryCity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.track("ListDeliveryCities")
	return append([]catalog.DeliveryCity{}, m.cities...), nil
}

func (m *memStore) GetDeliveryCity(_ context.Context, name string) (catalog.DeliveryCity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.cities {
		if strings.EqualFold(strings.TrimSpace(c.City), strings.TrimSpace(name)) {
			return c, nil
		}
	}
	return catalog.DeliveryCity{}, catalog.ErrNotFound
}

func (m *memStore) Dashboard(_ context.Context, recent int) (catalog.Dashboard, error) {
	products, total, _ := m.ListProducts(context.Background(), catalog.ProductFilter{Page: 1, Limit: recent})
	m.mu.Lock()
	defer m.mu.Unlock()
	d := catalog.Dashboard{RecentProducts: products}
	d.Stats.TotalProducts = total
	d.Stats.TotalCategories = int64(len(m.categories))
	counts := map[string]int64{}
	for _, p := range m.products {
		if p.Featured {
			d.Stats.FeaturedProducts++
		}
		if p.Category != "" {
			counts[p.Category]++
		}
	}
	for name, n := range counts {
		d.CategoryStats = append(d.CategoryStats, catalog.CategoryCount{Category: name, Count: n})
	}
	return d, nil
}
