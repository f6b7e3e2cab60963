package catalog

import (
	"time"

	"github.com/noah-isme/backend-boutique/internal/pricing"
)

// PlaceholderImage is served when a product has no usable picture.
const PlaceholderImage = "/placeholder.svg?height=300&width=300"

// Product is a storefront article with its variants.
type Product struct {
	ID             int64          `json:"id"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	Price          pricing.Money  `json:"price"`
	PromotionPrice *pricing.Money `json:"promotion_price,omitempty"`
	IsOnPromotion  bool           `json:"is_on_promotion"`
	Image1         string         `json:"image1,omitempty"`
	Image2         string         `json:"image2,omitempty"`
	Image3         string         `json:"image3,omitempty"`
	Image4         string         `json:"image4,omitempty"`
	MainImage      string         `json:"main_image"`
	Category       string         `json:"category"`
	Rating         float64        `json:"rating"`
	Reviews        int            `json:"reviews"`
	Featured       bool           `json:"featured"`
	InStock        bool           `json:"in_stock"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	Variants       []Variant      `json:"variants"`
}

// Variant is a size/color combination of a product.
type Variant struct {
	ID            int64  `json:"id"`
	ProductID     int64  `json:"product_id"`
	Size          string `json:"size"`
	StockQuantity int    `json:"stock_quantity"`
	Color         string `json:"color,omitempty"`
	ImageURL      string `json:"image_url,omitempty"`
}

// Category groups products in the storefront navigation.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Image       string    `json:"image,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// DeliveryCity carries the courier fees for one city.
type DeliveryCity struct {
	Ref         string        `json:"ref"`
	City        string        `json:"city"`
	DeliveryFee pricing.Money `json:"delivery_fee"`
	ReturnFee   pricing.Money `json:"return_fee"`
}

// CategoryCount is the number of products carrying a category label.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// DashboardTotals are the headline counters of the back office.
type DashboardTotals struct {
	TotalProducts    int64 `json:"total_products"`
	TotalCategories  int64 `json:"total_categories"`
	FeaturedProducts int64 `json:"featured_products"`
}

// Dashboard aggregates the admin landing page data.
type Dashboard struct {
	Stats          DashboardTotals `json:"stats"`
	RecentProducts []Product       `json:"recent_products"`
	CategoryStats  []CategoryCount `json:"category_stats"`
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	Category string
	Search   string
	Featured bool
	// InStockOnly hides products flagged out of stock (storefront listings).
	InStockOnly bool
	Page        int
	Limit       int
}

// VariantInput is the admin payload for one variant.
type VariantInput struct {
	Size          string `json:"size" validate:"required,max=32"`
	StockQuantity int    `json:"stock_quantity" validate:"gte=0"`
	Color         string `json:"color" validate:"max=64"`
	ImageURL      string `json:"image_url" validate:"omitempty,max=2048"`
}

// ProductInput is the admin payload for creating or replacing a product.
type ProductInput struct {
	Name           string         `json:"name" validate:"required,max=255"`
	Description    string         `json:"description" validate:"max=5000"`
	Price          pricing.Money  `json:"price" validate:"gt=0,lte=1000000000"`
	PromotionPrice *pricing.Money `json:"promotion_price" validate:"omitempty,gte=0,lte=1000000000"`
	IsOnPromotion  bool           `json:"is_on_promotion"`
	Image1         string         `json:"image1" validate:"omitempty,max=2048"`
	Image2         string         `json:"image2" validate:"omitempty,max=2048"`
	Image3         string         `json:"image3" validate:"omitempty,max=2048"`
	Image4         string         `json:"image4" validate:"omitempty,max=2048"`
	Category       string         `json:"category" validate:"max=128"`
	Rating         float64        `json:"rating" validate:"gte=0,lte=5"`
	Reviews        int            `json:"reviews" validate:"gte=0"`
	Featured       bool           `json:"featured"`
	InStock        *bool          `json:"in_stock"`
	Variants       []VariantInput `json:"variants" validate:"dive"`
}

// CategoryInput is the admin payload for a category.
type CategoryInput struct {
	Name        string `json:"name" validate:"required,max=128"`
	Image       string `json:"image" validate:"omitempty,max=2048"`
	Description string `json:"description" validate:"max=2000"`
}

// EffectivePrice is the per-unit price charged for p: the promotion price
// while a positive one is active, otherwise the list price.
func (p Product) EffectivePrice() pricing.Money {
	if p.IsOnPromotion && p.PromotionPrice != nil && *p.PromotionPrice > 0 {
		return *p.PromotionPrice
	}
	return p.Price
}

// Image returns the picture shown for a selected color, falling back to MainImage.
func (p Product) Image(color string) string {
	if color != "" {
		for _, v := range p.Variants {
			if v.Color == color && v.ImageURL != "" {
				return v.ImageURL
			}
		}
	}
	if p.MainImage != "" {
		return p.MainImage
	}
	return mainImage(p)
}

// FindAvailableVariant returns a variant matching size and color that still
// has stock. Empty selectors match anything.
func (p Product) FindAvailableVariant(size, color string) (Variant, bool) {
	for _, v := range p.Variants {
		if size != "" && v.Size != size {
			continue
		}
		if color != "" && v.Color != color {
			continue
		}
		if v.StockQuantity > 0 {
			return v, true
		}
	}
	return Variant{}, false
}

func mainImage(p Product) string {
	for _, v := range p.Variants {
		if v.Color != "" && v.ImageURL != "" {
			return v.ImageURL
		}
	}
	if p.Image1 != "" {
		return p.Image1
	}
	return PlaceholderImage
}

func withDerived(p Product) Product {
	if p.Variants == nil {
		p.Variants = []Variant{}
	}
	p.MainImage = mainImage(p)
	return p
}

func deriveAll(products []Product) []Product {
	for i := range products {
		products[i] = withDerived(products[i])
	}
	return products
}
