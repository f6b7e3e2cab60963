package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-boutique/internal/common"
)

// DashboardRecentProducts is the number of products shown on the dashboard.
const DashboardRecentProducts = 5

// Service orchestrates catalog queries, validation, and caching.
type Service struct {
	store        Store
	cache        *Cache
	validate     *validator.Validate
	defaultLimit int
	maxLimit     int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store        Store
	Cache        *Cache
	Validator    *validator.Validate
	DefaultLimit int
	MaxLimit     int
}

// ProductList is one page of products with its total.
type ProductList struct {
	Items []Product
	Total int64
	Page  int
	Limit int
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("catalog: store is required")
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit < 1 {
		defaultLimit = 20
	}
	maxLimit := cfg.MaxLimit
	if maxLimit < 1 {
		maxLimit = 100
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	v := cfg.Validator
	if v == nil {
		v = common.NewValidator()
	}
	return &Service{
		store:        cfg.Store,
		cache:        cfg.Cache,
		validate:     v,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}, nil
}

// ParseListParams normalises raw query values into a ProductFilter.
func (s *Service) ParseListParams(values url.Values) (ProductFilter, error) {
	f := ProductFilter{Page: 1, Limit: s.defaultLimit}
	f.Category = strings.TrimSpace(values.Get("category"))
	f.Search = strings.TrimSpace(values.Get("search"))

	if v := strings.TrimSpace(values.Get("page")); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return f, badRequest("page", "page must be a positive integer", err)
		}
		f.Page = page
	}
	if v := strings.TrimSpace(values.Get("limit")); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return f, badRequest("limit", "limit must be a positive integer", err)
		}
		f.Limit = limit
	}
	if f.Limit > s.maxLimit {
		f.Limit = s.maxLimit
	}
	if v := strings.TrimSpace(values.Get("featured")); v != "" {
		featured, err := strconv.ParseBool(v)
		if err != nil {
			return f, badRequest("featured", "featured must be true or false", err)
		}
		f.Featured = featured
	}
	return f, nil
}

// ListProducts returns in-stock products for the storefront. The unfiltered
// first page is cached.
func (s *Service) ListProducts(ctx context.Context, f ProductFilter) (ProductList, error) {
	f.InStockOnly = true
	cacheable := f.Page == 1 && f.Limit == s.defaultLimit && f.Category == "" && f.Search == "" && !f.Featured
	if cacheable {
		var cached ProductList
		if ok, err := s.cache.GetJSON(ctx, productListCacheKey, &cached); err == nil && ok {
			return cached, nil
		}
	}
	items, total, err := s.store.ListProducts(ctx, f)
	if err != nil {
		return ProductList{}, fmt.Errorf("list products: %w", err)
	}
	result := ProductList{Items: deriveAll(items), Total: total, Page: f.Page, Limit: f.Limit}
	if cacheable {
		_ = s.cache.SetJSON(ctx, productListCacheKey, result)
	}
	return result, nil
}

// AdminListProducts lists every product, including those out of stock.
func (s *Service) AdminListProducts(ctx context.Context, f ProductFilter) (ProductList, error) {
	f.InStockOnly = false
	items, total, err := s.store.ListProducts(ctx, f)
	if err != nil {
		return ProductList{}, fmt.Errorf("list products: %w", err)
	}
	return ProductList{Items: deriveAll(items), Total: total, Page: f.Page, Limit: f.Limit}, nil
}

// GetProduct returns a product with its variants.
func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	key := productCacheKey(id)
	var cached Product
	if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}
	p, err := s.reload(ctx, id)
	if err != nil {
		return Product{}, err
	}
	_ = s.cache.SetJSON(ctx, key, p)
	return p, nil
}

// AdminGetProduct reads a product straight from the store, bypassing the cache.
func (s *Service) AdminGetProduct(ctx context.Context, id int64) (Product, error) {
	return s.reload(ctx, id)
}

// ListVariants returns the variants of a product ordered by size.
func (s *Service) ListVariants(ctx context.Context, id int64) ([]Variant, error) {
	variants, err := s.store.ListVariants(ctx, id)
	if err != nil {
		return nil, mapErr(err, "product not found")
	}
	return variants, nil
}

// ListCategories returns all categories ordered by name.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	var cached []Category
	if ok, err := s.cache.GetJSON(ctx, categoriesCacheKey, &cached); err == nil && ok {
		return cached, nil
	}
	rows, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	_ = s.cache.SetJSON(ctx, categoriesCacheKey, rows)
	return rows, nil
}

// AdminListCategories reads categories straight from the store.
func (s *Service) AdminListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return rows, nil
}

// GetCategory returns one category.
func (s *Service) GetCategory(ctx context.Context, id int64) (Category, error) {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return Category{}, mapErr(err, "category not found")
	}
	return c, nil
}

// ListDeliveryCities returns the courier fee table.
func (s *Service) ListDeliveryCities(ctx context.Context) ([]DeliveryCity, error) {
	var cached []DeliveryCity
	if ok, err := s.cache.GetJSON(ctx, deliveryCityCacheKey, &cached); err == nil && ok {
		return cached, nil
	}
	rows, err := s.store.ListDeliveryCities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list delivery cities: %w", err)
	}
	_ = s.cache.SetJSON(ctx, deliveryCityCacheKey, rows)
	return rows, nil
}

// DeliveryCity looks up the fees for a city name.
func (s *Service) DeliveryCity(ctx context.Context, name string) (DeliveryCity, error) {
	if strings.TrimSpace(name) == "" {
		return DeliveryCity{}, badRequest("city", "city is required", nil)
	}
	c, err := s.store.GetDeliveryCity(ctx, name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return DeliveryCity{}, badRequest("city", "unknown delivery city", err)
		}
		return DeliveryCity{}, fmt.Errorf("get delivery city: %w", err)
	}
	return c, nil
}

// CreateProduct validates and stores a new product with its variants.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (Product, error) {
	if err := s.validateProduct(in); err != nil {
		return Product{}, err
	}
	id, err := s.store.CreateProduct(ctx, in)
	if err != nil {
		return Product{}, fmt.Errorf("create product: %w", err)
	}
	s.invalidate(ctx, productListCacheKey)
	return s.reload(ctx, id)
}

// UpdateProduct replaces a product and all of its variants.
func (s *Service) UpdateProduct(ctx context.Context, id int64, in ProductInput) (Product, error) {
	if err := s.validateProduct(in); err != nil {
		return Product{}, err
	}
	if err := s.store.UpdateProduct(ctx, id, in); err != nil {
		return Product{}, mapErr(err, "product not found")
	}
	s.invalidate(ctx, productListCacheKey, productCacheKey(id))
	return s.reload(ctx, id)
}

// DeleteProduct removes a product and its variants.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return mapErr(err, "product not found")
	}
	s.invalidate(ctx, productListCacheKey, productCacheKey(id))
	return nil
}

// CreateCategory validates and stores a category.
func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (Category, error) {
	if err := common.ValidateStruct(s.validate, in); err != nil {
		return Category{}, err
	}
	c, err := s.store.CreateCategory(ctx, in)
	if err != nil {
		return Category{}, fmt.Errorf("create category: %w", err)
	}
	s.invalidate(ctx, categoriesCacheKey)
	return c, nil
}

// UpdateCategory overwrites a category.
func (s *Service) UpdateCategory(ctx context.Context, id int64, in CategoryInput) (Category, error) {
	if err := common.ValidateStruct(s.validate, in); err != nil {
		return Category{}, err
	}
	c, err := s.store.UpdateCategory(ctx, id, in)
	if err != nil {
		return Category{}, mapErr(err, "category not found")
	}
	s.invalidate(ctx, categoriesCacheKey)
	return c, nil
}

// DeleteCategory removes a category.
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return mapErr(err, "category not found")
	}
	s.invalidate(ctx, categoriesCacheKey)
	return nil
}

// Dashboard returns the back office overview.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	d, err := s.store.Dashboard(ctx, DashboardRecentProducts)
	if err != nil {
		return Dashboard{}, fmt.Errorf("dashboard: %w", err)
	}
	d.RecentProducts = deriveAll(d.RecentProducts)
	if d.CategoryStats == nil {
		d.CategoryStats = []CategoryCount{}
	}
	return d, nil
}

func (s *Service) validateProduct(in ProductInput) error {
	if err := common.ValidateStruct(s.validate, in); err != nil {
		return err
	}
	if in.IsOnPromotion {
		if in.PromotionPrice == nil || *in.PromotionPrice <= 0 {
			return common.ValidationFailed("validation failed",
				common.FieldError{Field: "promotion_price", Rule: "required_with", Param: "is_on_promotion"})
		}
		if *in.PromotionPrice >= in.Price {
			return common.ValidationFailed("validation failed",
				common.FieldError{Field: "promotion_price", Rule: "ltfield", Param: "price"})
		}
	}
	return nil
}

func (s *Service) reload(ctx context.Context, id int64) (Product, error) {
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return Product{}, mapErr(err, "product not found")
	}
	return withDerived(p), nil
}

func (s *Service) invalidate(ctx context.Context, keys ...string) {
	if err := s.cache.Delete(ctx, keys...); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Strs("keys", keys).Msg("catalog cache invalidation failed")
	}
}

func mapErr(err error, message string) error {
	if errors.Is(err, ErrNotFound) {
		return common.NotFound(message, err)
	}
	return err
}

func badRequest(field, message string, err error) *common.AppError {
	return common.BadRequest(message, err).WithDetails(map[string]any{"field": field})
}

// ParseID parses a positive integer path parameter.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id < 1 {
		return 0, badRequest("id", "id must be a positive integer", err)
	}
	return id, nil
}
