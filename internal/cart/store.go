package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-boutique/internal/pricing"
)

// ErrNotFound indicates the requested cart could not be located.
var ErrNotFound = errors.New("cart not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// Line is one product/size/color selection held in a cart.
type Line struct {
	LineID    string        `json:"line_id"`
	ProductID int64         `json:"product_id"`
	Name      string        `json:"name"`
	Category  string        `json:"category"`
	UnitPrice pricing.Money `json:"unit_price"`
	Quantity  int           `json:"quantity"`
	Size      string        `json:"size,omitempty"`
	Color     string        `json:"color,omitempty"`
	Image     string        `json:"image,omitempty"`
}

// Cart is the document persisted per cart id.
type Cart struct {
	ID        string    `json:"id"`
	Lines     []Line    `json:"lines"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PricingItems converts the cart lines into calculator input.
func (c Cart) PricingItems() []pricing.Item {
	items := make([]pricing.Item, 0, len(c.Lines))
	for _, l := range c.Lines {
		items = append(items, pricing.Item{
			ProductID: strconv.FormatInt(l.ProductID, 10),
			Name:      l.Name,
			Category:  l.Category,
			UnitPrice: l.UnitPrice,
			Qty:       l.Quantity,
			Size:      l.Size,
			Color:     l.Color,
		})
	}
	return items
}

// TotalItems sums the quantity of every line.
func (c Cart) TotalItems() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// Store persists carts in Redis as JSON documents. Every read or write
// pushes the expiry forward by TTL.
type Store struct {
	R   *redis.Client
	TTL time.Duration
}

func cartKey(id string) string {
	return "cart:" + id
}

func (s *Store) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return s.TTL
}

// Get loads a cart and refreshes its expiry.
func (s *Store) Get(ctx context.Context, id string) (Cart, error) {
	raw, err := s.R.Get(ctx, cartKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Cart{}, ErrNotFound
		}
		return Cart{}, fmt.Errorf("load cart: %w", err)
	}
	var c Cart
	if err := json.Unmarshal(raw, &c); err != nil {
		return Cart{}, fmt.Errorf("decode cart: %w", err)
	}
	if err := s.R.Expire(ctx, cartKey(id), s.ttl()).Err(); err != nil {
		return Cart{}, fmt.Errorf("touch cart: %w", err)
	}
	return c, nil
}

// Save writes the cart with a fresh expiry.
func (s *Store) Save(ctx context.Context, c Cart) error {
	if c.Lines == nil {
		c.Lines = []Line{}
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.R.Set(ctx, cartKey(c.ID), payload, s.ttl()).Err(); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}
