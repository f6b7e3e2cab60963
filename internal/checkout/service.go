package checkout

import (
	"context"
	"errors"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-boutique/internal/cart"
	"github.com/noah-isme/backend-boutique/internal/catalog"
	"github.com/noah-isme/backend-boutique/internal/common"
	"github.com/noah-isme/backend-boutique/internal/obs"
	"github.com/noah-isme/backend-boutique/internal/order"
	"github.com/noah-isme/backend-boutique/internal/pricing"
)

// ErrEmptyCart is returned when checking out a cart without lines.
var ErrEmptyCart = errors.New("cart is empty")

// Customer holds the delivery details collected at checkout.
type Customer struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone" validate:"required"`
	Email   string `json:"email" validate:"omitempty,email"`
	City    string `json:"city" validate:"required"`
	Address string `json:"address" validate:"required"`
}

// Input is the WhatsApp checkout request.
type Input struct {
	CartID   string   `json:"cart_id" validate:"required"`
	Customer Customer `json:"customer"`
}

// Output carries the message ready to send and the priced order.
type Output struct {
	Reference   string          `json:"reference"`
	Message     string          `json:"message"`
	WhatsAppURL string          `json:"whatsapp_url"`
	Pricing     pricing.Summary `json:"pricing"`
	DeliveryFee pricing.Money   `json:"delivery_fee"`
	Total       pricing.Money   `json:"total"`
}

// Carts loads and prices stored carts.
type Carts interface {
	Load(ctx context.Context, id string) (cart.Cart, error)
	Price(c cart.Cart) cart.View
}

// DeliveryCities resolves delivery fees by city name.
type DeliveryCities interface {
	DeliveryCity(ctx context.Context, name string) (catalog.DeliveryCity, error)
}

// Enqueuer is the subset of *asynq.Client used to hand orders to the worker.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Service prepares WhatsApp orders from carts.
type Service struct {
	Carts          Carts
	Cities         DeliveryCities
	Tasks          Enqueuer
	Validator      *validator.Validate
	Metrics        *obs.DomainMetrics
	WhatsAppNumber string
	FreeDelivery   bool
	Now            func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// WhatsApp validates in, prices the cart, and builds the order message and link.
func (s *Service) WhatsApp(ctx context.Context, in Input) (out Output, err error) {
	defer func() { s.Metrics.Checkout(err) }()

	in = normalize(in)
	if err := common.ValidateStruct(s.Validator, in); err != nil {
		return Output{}, err
	}
	c, err := s.Carts.Load(ctx, in.CartID)
	if err != nil {
		return Output{}, err
	}
	if len(c.Lines) == 0 {
		return Output{}, common.BadRequest("cart is empty", ErrEmptyCart)
	}

	var fee pricing.Money
	if !s.FreeDelivery {
		city, err := s.Cities.DeliveryCity(ctx, in.Customer.City)
		if err != nil {
			return Output{}, err
		}
		fee = city.DeliveryFee
	}

	view := s.Carts.Price(c)
	message := BuildMessage(in.Customer, view.Lines, view.Pricing, fee, s.FreeDelivery)
	out = Output{
		Reference:   uuid.NewString(),
		Message:     message,
		WhatsAppURL: WhatsAppURL(s.WhatsAppNumber, message),
		Pricing:     view.Pricing,
		DeliveryFee: fee,
		Total:       view.Pricing.PromotionalTotal + fee,
	}

	for _, a := range view.Pricing.Breakdown {
		s.Metrics.Promotion(a.Code, a.Discount)
	}
	s.enqueue(ctx, in, view, out)
	return out, nil
}

// enqueue hands the order to the worker. Failures are logged; the customer
// still gets the WhatsApp link.
func (s *Service) enqueue(ctx context.Context, in Input, view cart.View, out Output) {
	if s.Tasks == nil {
		return
	}
	logger := zerolog.Ctx(ctx)
	lines := make([]order.Line, 0, len(view.Lines))
	for _, l := range view.Lines {
		lines = append(lines, order.Line{
			ProductID: l.ProductID,
			Name:      l.Name,
			Size:      l.Size,
			Color:     l.Color,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	task, err := order.NewWhatsAppRequestedTask(order.Request{
		Reference:         out.Reference,
		CartID:            in.CartID,
		Customer:          order.Customer(in.Customer),
		Lines:             lines,
		RegularTotal:      view.Pricing.RegularTotal,
		PromotionalTotal:  view.Pricing.PromotionalTotal,
		Savings:           view.Pricing.Savings,
		DeliveryFee:       out.DeliveryFee,
		Total:             out.Total,
		AppliedPromotions: view.Pricing.AppliedPromotions,
		RequestedAt:       s.now(),
	})
	if err != nil {
		logger.Error().Err(err).Str("reference", out.Reference).Msg("build order task")
		return
	}
	if _, err := s.Tasks.EnqueueContext(ctx, task); err != nil {
		logger.Warn().Err(err).Str("reference", out.Reference).Msg("enqueue order request")
		return
	}
	logger.Info().Str("reference", out.Reference).Str("cart_id", in.CartID).Msg("order request enqueued")
}

func normalize(in Input) Input {
	in.CartID = strings.TrimSpace(in.CartID)
	in.Customer.Name = strings.TrimSpace(in.Customer.Name)
	in.Customer.Phone = strings.TrimSpace(in.Customer.Phone)
	in.Customer.Email = strings.TrimSpace(in.Customer.Email)
	in.Customer.City = strings.TrimSpace(in.Customer.City)
	in.Customer.Address = strings.TrimSpace(in.Customer.Address)
	return in
}
