package cart

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-boutique/internal/catalog"
	"github.com/noah-isme/backend-boutique/internal/lock"
	"github.com/noah-isme/backend-boutique/internal/obs"
	"github.com/noah-isme/backend-boutique/internal/pricing"
)

// ProductLookup resolves catalog products for cart additions.
type ProductLookup interface {
	GetProduct(ctx context.Context, id int64) (catalog.Product, error)
}

// Service encapsulates cart domain operations.
type Service struct {
	Store    *Store
	Products ProductLookup
	Locker   lock.Locker
	LockTTL  time.Duration
	Engine   pricing.Engine
	Metrics  *obs.DomainMetrics
	Now      func() time.Time
}

// View is the cart as returned to clients, priced with the promotions.
type View struct {
	ID         string          `json:"id"`
	Lines      []Line          `json:"lines"`
	TotalItems int             `json:"total_items"`
	Pricing    pricing.Summary `json:"pricing"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// AddItemInput selects a product, its optional size and color, and a quantity.
type AddItemInput struct {
	ProductID int64  `json:"product_id"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) engine() pricing.Engine {
	if len(s.Engine.Rules) == 0 && s.Engine.SeparateStep == 0 {
		return pricing.Default()
	}
	return s.Engine
}

// Price builds the client view of c.
func (s *Service) Price(c Cart) View {
	lines := c.Lines
	if lines == nil {
		lines = []Line{}
	}
	return View{
		ID:         c.ID,
		Lines:      lines,
		TotalItems: c.TotalItems(),
		Pricing:    s.engine().Compute(c.PricingItems()),
		UpdatedAt:  c.UpdatedAt,
	}
}

// Create starts an empty cart.
func (s *Service) Create(ctx context.Context) (View, error) {
	now := s.now()
	c := Cart{ID: uuid.NewString(), Lines: []Line{}, CreatedAt: now, UpdatedAt: now}
	err := s.Store.Save(ctx, c)
	s.Metrics.CartMutation("create", err)
	if err != nil {
		return View{}, err
	}
	return s.Price(c), nil
}

// Get returns the priced cart.
func (s *Service) Get(ctx context.Context, id string) (View, error) {
	if err := validateID(id); err != nil {
		return View{}, err
	}
	c, err := s.Store.Get(ctx, id)
	if err != nil {
		return View{}, err
	}
	return s.Price(c), nil
}

// Load returns the raw cart document.
func (s *Service) Load(ctx context.Context, id string) (Cart, error) {
	if err := validateID(id); err != nil {
		return Cart{}, err
	}
	return s.Store.Get(ctx, id)
}

// AddItem appends a selection or increments the matching line. A zero
// quantity adds one unit.
func (s *Service) AddItem(ctx context.Context, id string, in AddItemInput) (View, error) {
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	in.Size = strings.TrimSpace(in.Size)
	in.Color = strings.TrimSpace(in.Color)
	if in.ProductID <= 0 {
		return View{}, fmt.Errorf("product_id is required: %w", ErrInvalidInput)
	}
	if in.Quantity < 0 || in.Quantity > pricing.MaxLineQuantity {
		return View{}, fmt.Errorf("quantity must be between 1 and %d: %w", pricing.MaxLineQuantity, ErrInvalidInput)
	}
	return s.mutate(ctx, "add_item", id, func(c *Cart) error {
		product, err := s.Products.GetProduct(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if !product.InStock {
			return fmt.Errorf("product %d is out of stock: %w", product.ID, ErrInvalidInput)
		}
		if len(product.Variants) > 0 && (in.Size != "" || in.Color != "") {
			if _, ok := product.FindAvailableVariant(in.Size, in.Color); !ok {
				return fmt.Errorf("selected size or color is unavailable: %w", ErrInvalidInput)
			}
		}

		lineID := pricing.LineID(strconv.FormatInt(product.ID, 10), in.Size, in.Color)
		for i := range c.Lines {
			if c.Lines[i].LineID == lineID {
				if c.Lines[i].Quantity+in.Quantity > pricing.MaxLineQuantity {
					return fmt.Errorf("quantity must not exceed %d: %w", pricing.MaxLineQuantity, ErrInvalidInput)
				}
				c.Lines[i].Quantity += in.Quantity
				return nil
			}
		}
		c.Lines = append(c.Lines, Line{
			LineID:    lineID,
			ProductID: product.ID,
			Name:      product.Name,
			Category:  product.Category,
			UnitPrice: product.EffectivePrice(),
			Quantity:  in.Quantity,
			Size:      in.Size,
			Color:     in.Color,
			Image:     product.Image(in.Color),
		})
		return nil
	})
}

// UpdateQuantity sets a line quantity. Zero or less removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, id, lineID string, qty int) (View, error) {
	if qty > pricing.MaxLineQuantity {
		return View{}, fmt.Errorf("quantity must not exceed %d: %w", pricing.MaxLineQuantity, ErrInvalidInput)
	}
	return s.mutate(ctx, "update_quantity", id, func(c *Cart) error {
		i := c.lineIndex(lineID)
		if i < 0 {
			return fmt.Errorf("line %s: %w", lineID, ErrNotFound)
		}
		if qty <= 0 {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return nil
		}
		c.Lines[i].Quantity = qty
		return nil
	})
}

// RemoveItem drops a line.
func (s *Service) RemoveItem(ctx context.Context, id, lineID string) (View, error) {
	return s.mutate(ctx, "remove_item", id, func(c *Cart) error {
		i := c.lineIndex(lineID)
		if i < 0 {
			return fmt.Errorf("line %s: %w", lineID, ErrNotFound)
		}
		c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
		return nil
	})
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, id string) (View, error) {
	return s.mutate(ctx, "clear", id, func(c *Cart) error {
		c.Lines = []Line{}
		return nil
	})
}

func (c *Cart) lineIndex(lineID string) int {
	for i, l := range c.Lines {
		if l.LineID == lineID {
			return i
		}
	}
	return -1
}

// mutate runs a read-modify-write of one cart under its lock.
func (s *Service) mutate(ctx context.Context, op, id string, fn func(*Cart) error) (View, error) {
	if err := validateID(id); err != nil {
		return View{}, err
	}
	var view View
	err := s.Locker.WithLock(ctx, lock.Key("cart", id), s.LockTTL, func(ctx context.Context) error {
		c, err := s.Store.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(&c); err != nil {
			return err
		}
		c.UpdatedAt = s.now()
		if err := s.Store.Save(ctx, c); err != nil {
			return err
		}
		view = s.Price(c)
		return nil
	})
	s.Metrics.CartMutation(op, err)
	if errors.Is(err, lock.ErrNotAcquired) {
		return View{}, fmt.Errorf("cart %s is busy: %w", id, err)
	}
	return view, err
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid cart id: %w", ErrInvalidInput)
	}
	return nil
}
