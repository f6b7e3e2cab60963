package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a product, category, or city does not exist.
var ErrNotFound = errors.New("catalog: not found")

// Store is the persistence boundary of the catalog.
type Store interface {
	ListProducts(ctx context.Context, f ProductFilter) ([]Product, int64, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	ListVariants(ctx context.Context, productID int64) ([]Variant, error)
	CreateProduct(ctx context.Context, in ProductInput) (int64, error)
	UpdateProduct(ctx context.Context, id int64, in ProductInput) error
	DeleteProduct(ctx context.Context, id int64) error

	ListCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, id int64) (Category, error)
	CreateCategory(ctx context.Context, in CategoryInput) (Category, error)
	UpdateCategory(ctx context.Context, id int64, in CategoryInput) (Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	ListDeliveryCities(ctx context.Context) ([]DeliveryCity, error)
	GetDeliveryCity(ctx context.Context, name string) (DeliveryCity, error)

	Dashboard(ctx context.Context, recent int) (Dashboard, error)
}

// PGStore implements Store on Postgres. Prices are stored as numeric dirhams
// and converted to centimes in SQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a PGStore.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const productColumns = `id, name, COALESCE(description, ''),
	ROUND(price * 100)::bigint, ROUND(promotion_price * 100)::bigint, COALESCE(is_on_promotion, false),
	COALESCE(image1, ''), COALESCE(image2, ''), COALESCE(image3, ''), COALESCE(image4, ''),
	COALESCE(category, ''), COALESCE(rating, 0)::float8, COALESCE(reviews, 0)::int,
	COALESCE(featured, false), COALESCE(in_stock, true), created_at, COALESCE(updated_at, created_at)`

const productFilterClause = `($1::text = '' OR LOWER(TRIM(category)) = $1)
	AND ($2::text = '' OR name ILIKE '%' || $2 || '%' ESCAPE '\')
	AND (NOT $3::bool OR featured)
	AND (NOT $4::bool OR in_stock)`

const variantColumns = `id, product_id, COALESCE(size, ''), COALESCE(stock_quantity, 0)::int, COALESCE(color, ''), COALESCE(image_url, '')`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user text match literally inside an ILIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (Product, error) {
	var p Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description,
		&p.Price, &p.PromotionPrice, &p.IsOnPromotion,
		&p.Image1, &p.Image2, &p.Image3, &p.Image4,
		&p.Category, &p.Rating, &p.Reviews,
		&p.Featured, &p.InStock, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

func scanVariant(row scanner) (Variant, error) {
	var v Variant
	err := row.Scan(&v.ID, &v.ProductID, &v.Size, &v.StockQuantity, &v.Color, &v.ImageURL)
	return v, err
}

func scanCategory(row scanner) (Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.Name, &c.Image, &c.Description, &c.CreatedAt)
	return c, err
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// withTx runs fn inside a transaction, committing when fn succeeds.
func (s *PGStore) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ListProducts returns one page of products, newest first, and the total match count.
func (s *PGStore) ListProducts(ctx context.Context, f ProductFilter) ([]Product, int64, error) {
	category := strings.ToLower(strings.TrimSpace(f.Category))
	search := escapeLike(strings.TrimSpace(f.Search))

	var total int64
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM products WHERE `+productFilterClause,
		category, search, f.Featured, f.InStockOnly,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	offset := 0
	if f.Page > 1 {
		offset = (f.Page - 1) * f.Limit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE `+productFilterClause+`
		ORDER BY created_at DESC, id DESC LIMIT $5 OFFSET $6`,
		category, search, f.Featured, f.InStockOnly, f.Limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	products, err := collectProducts(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	if err := s.attachVariants(ctx, products); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	defer rows.Close()
	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *PGStore) attachVariants(ctx context.Context, products []Product) error {
	if len(products) == 0 {
		return nil
	}
	ids := make([]int64, len(products))
	index := make(map[int64]int, len(products))
	for i, p := range products {
		ids[i] = p.ID
		index[p.ID] = i
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+variantColumns+` FROM product_variants WHERE product_id = ANY($1) ORDER BY created_at, id`, ids)
	if err != nil {
		return fmt.Errorf("list variants: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return fmt.Errorf("scan variant: %w", err)
		}
		if i, ok := index[v.ProductID]; ok {
			products[i].Variants = append(products[i].Variants, v)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("list variants: %w", err)
	}
	return nil
}

// GetProduct loads one product with its variants in creation order.
func (s *PGStore) GetProduct(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		return Product{}, notFound(err)
	}
	products := []Product{p}
	if err := s.attachVariants(ctx, products); err != nil {
		return Product{}, err
	}
	return products[0], nil
}

// ListVariants returns the variants of a product ordered by size.
func (s *PGStore) ListVariants(ctx context.Context, productID int64) ([]Variant, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("lookup product: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+variantColumns+` FROM product_variants WHERE product_id = $1 ORDER BY size, id`, productID)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	defer rows.Close()
	variants := []Variant{}
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		variants = append(variants, v)
	}
	return variants, rows.Err()
}

func productArgs(in ProductInput) []any {
	inStock := true
	if in.InStock != nil {
		inStock = *in.InStock
	}
	var promo any
	if in.PromotionPrice != nil {
		promo = *in.PromotionPrice
	}
	return []any{
		strings.TrimSpace(in.Name), nullable(in.Description),
		in.Price, promo, in.IsOnPromotion,
		nullable(in.Image1), nullable(in.Image2), nullable(in.Image3), nullable(in.Image4),
		nullable(in.Category), in.Rating, in.Reviews, in.Featured, inStock,
	}
}

func nullable(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return strings.TrimSpace(v)
}

func insertVariants(ctx context.Context, tx pgx.Tx, productID int64, variants []VariantInput) error {
	if len(variants) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, v := range variants {
		batch.Queue(`INSERT INTO product_variants (product_id, size, stock_quantity, color, image_url, created_at)
			VALUES ($1, $2, $3, $4, $5, NOW())`,
			productID, strings.TrimSpace(v.Size), v.StockQuantity, nullable(v.Color), nullable(v.ImageURL))
	}
	br := tx.SendBatch(ctx, batch)
	for range variants {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("insert variant: %w", err)
		}
	}
	return br.Close()
}

// CreateProduct inserts a product and its variants atomically.
func (s *PGStore) CreateProduct(ctx context.Context, in ProductInput) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`INSERT INTO products (name, description, price, promotion_price, is_on_promotion,
				image1, image2, image3, image4, category, rating, reviews, featured, in_stock, created_at, updated_at)
			VALUES ($1, $2, $3::numeric / 100, $4::numeric / 100, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
			RETURNING id`,
			productArgs(in)...,
		).Scan(&id); err != nil {
			return fmt.Errorf("insert product: %w", err)
		}
		return insertVariants(ctx, tx, id, in.Variants)
	})
	return id, err
}

// UpdateProduct overwrites a product and replaces all of its variants.
func (s *PGStore) UpdateProduct(ctx context.Context, id int64, in ProductInput) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		args := append(productArgs(in), id)
		tag, err := tx.Exec(ctx,
			`UPDATE products SET name = $1, description = $2, price = $3::numeric / 100,
				promotion_price = $4::numeric / 100, is_on_promotion = $5,
				image1 = $6, image2 = $7, image3 = $8, image4 = $9, category = $10,
				rating = $11, reviews = $12, featured = $13, in_stock = $14, updated_at = NOW()
			WHERE id = $15`,
			args...,
		)
		if err != nil {
			return fmt.Errorf("update product: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM product_variants WHERE product_id = $1`, id); err != nil {
			return fmt.Errorf("delete variants: %w", err)
		}
		return insertVariants(ctx, tx, id, in.Variants)
	})
}

// DeleteProduct removes a product after its variants.
func (s *PGStore) DeleteProduct(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM product_variants WHERE product_id = $1`, id); err != nil {
			return fmt.Errorf("delete variants: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete product: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

const categoryColumns = `id, name, COALESCE(image, ''), COALESCE(description, ''), created_at`

// ListCategories returns every category ordered by name.
func (s *PGStore) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()
	categories := []Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// GetCategory loads one category.
func (s *PGStore) GetCategory(ctx context.Context, id int64) (Category, error) {
	c, err := scanCategory(s.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
	if err != nil {
		return Category{}, notFound(err)
	}
	return c, nil
}

// CreateCategory inserts a category.
func (s *PGStore) CreateCategory(ctx context.Context, in CategoryInput) (Category, error) {
	c, err := scanCategory(s.pool.QueryRow(ctx,
		`INSERT INTO categories (name, image, description, created_at) VALUES ($1, $2, $3, NOW())
		RETURNING `+categoryColumns,
		strings.TrimSpace(in.Name), nullable(in.Image), nullable(in.Description)))
	if err != nil {
		return Category{}, fmt.Errorf("insert category: %w", err)
	}
	return c, nil
}

// UpdateCategory overwrites a category.
func (s *PGStore) UpdateCategory(ctx context.Context, id int64, in CategoryInput) (Category, error) {
	c, err := scanCategory(s.pool.QueryRow(ctx,
		`UPDATE categories SET name = $1, image = $2, description = $3 WHERE id = $4
		RETURNING `+categoryColumns,
		strings.TrimSpace(in.Name), nullable(in.Image), nullable(in.Description), id))
	if err != nil {
		return Category{}, notFound(err)
	}
	return c, nil
}

// DeleteCategory removes a category. Products keep their free-text label.
func (s *PGStore) DeleteCategory(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const deliveryColumns = `"Réf"::text, "Ville", ROUND(COALESCE("Frais livraison", 0)::numeric * 100)::bigint,
	ROUND(COALESCE("Frais Retour", 0)::numeric * 100)::bigint`

// ListDeliveryCities returns the courier table ordered by city.
func (s *PGStore) ListDeliveryCities(ctx context.Context) ([]DeliveryCity, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+deliveryColumns+` FROM livraiso_info ORDER BY "Ville"`)
	if err != nil {
		return nil, fmt.Errorf("list delivery cities: %w", err)
	}
	defer rows.Close()
	cities := []DeliveryCity{}
	for rows.Next() {
		var c DeliveryCity
		if err := rows.Scan(&c.Ref, &c.City, &c.DeliveryFee, &c.ReturnFee); err != nil {
			return nil, fmt.Errorf("scan delivery city: %w", err)
		}
		cities = append(cities, c)
	}
	return cities, rows.Err()
}

// GetDeliveryCity looks a city up by name, ignoring case and surrounding spaces.
func (s *PGStore) GetDeliveryCity(ctx context.Context, name string) (DeliveryCity, error) {
	var c DeliveryCity
	err := s.pool.QueryRow(ctx,
		`SELECT `+deliveryColumns+` FROM livraiso_info WHERE LOWER(TRIM("Ville")) = LOWER(TRIM($1)) LIMIT 1`, name,
	).Scan(&c.Ref, &c.City, &c.DeliveryFee, &c.ReturnFee)
	if err != nil {
		return DeliveryCity{}, notFound(err)
	}
	return c, nil
}

// Dashboard gathers back office counters, the most recent products, and per-category counts.
func (s *PGStore) Dashboard(ctx context.Context, recent int) (Dashboard, error) {
	var d Dashboard
	if err := s.pool.QueryRow(ctx, `SELECT
		(SELECT COUNT(*) FROM products),
		(SELECT COUNT(*) FROM categories),
		(SELECT COUNT(*) FROM products WHERE featured)`,
	).Scan(&d.Stats.TotalProducts, &d.Stats.TotalCategories, &d.Stats.FeaturedProducts); err != nil {
		return Dashboard{}, fmt.Errorf("dashboard counters: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY created_at DESC, id DESC LIMIT $1`, recent)
	if err != nil {
		return Dashboard{}, fmt.Errorf("recent products: %w", err)
	}
	if d.RecentProducts, err = collectProducts(rows); err != nil {
		return Dashboard{}, fmt.Errorf("recent products: %w", err)
	}
	if err := s.attachVariants(ctx, d.RecentProducts); err != nil {
		return Dashboard{}, err
	}

	rows, err = s.pool.Query(ctx,
		`SELECT category, COUNT(*) FROM products WHERE category IS NOT NULL GROUP BY category ORDER BY category`)
	if err != nil {
		return Dashboard{}, fmt.Errorf("category stats: %w", err)
	}
	defer rows.Close()
	d.CategoryStats = []CategoryCount{}
	for rows.Next() {
		var cc CategoryCount
		if err := rows.Scan(&cc.Category, &cc.Count); err != nil {
			return Dashboard{}, fmt.Errorf("scan category stats: %w", err)
		}
		d.CategoryStats = append(d.CategoryStats, cc)
	}
	return d, rows.Err()
}
