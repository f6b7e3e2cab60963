package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DomainMetrics holds storefront business counters.
type DomainMetrics struct {
	// PromotionsApplied counts promotion groupings by code.
	PromotionsApplied *prometheus.CounterVec
	// PromotionSavings accumulates granted discounts in centimes by code.
	PromotionSavings *prometheus.CounterVec
	// CartMutations counts cart writes by operation and result.
	CartMutations *prometheus.CounterVec
	// Checkouts counts WhatsApp checkout attempts by result.
	Checkouts *prometheus.CounterVec
	// OrderRequests counts order requests persisted by the worker.
	OrderRequests *prometheus.CounterVec
}

// NewDomainMetrics registers the storefront collectors on reg (default registerer when nil).
func NewDomainMetrics(namespace string, reg prometheus.Registerer) *DomainMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &DomainMetrics{
		PromotionsApplied: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promotions_applied_total",
			Help:      "Number of promotion groupings applied to priced carts.",
		}, []string{"code"})),
		PromotionSavings: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promotion_savings_centimes_total",
			Help:      "Discount granted by promotions in centimes.",
		}, []string{"code"})),
		CartMutations: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Cart write operations by outcome.",
		}, []string{"operation", "result"})),
		Checkouts: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_total",
			Help:      "WhatsApp checkout requests by outcome.",
		}, []string{"result"})),
		OrderRequests: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_requests_total",
			Help:      "Order requests recorded by the worker by outcome.",
		}, []string{"result"})),
	}
}

// Promotion records one applied promotion grouping. Safe on a nil receiver.
func (m *DomainMetrics) Promotion(code string, discount int64) {
	if m == nil {
		return
	}
	m.PromotionsApplied.WithLabelValues(code).Inc()
	if discount > 0 {
		m.PromotionSavings.WithLabelValues(code).Add(float64(discount))
	}
}

// CartMutation records a cart write.
func (m *DomainMetrics) CartMutation(operation string, err error) {
	if m == nil {
		return
	}
	m.CartMutations.WithLabelValues(operation, result(err)).Inc()
}

// Checkout records a checkout outcome.
func (m *DomainMetrics) Checkout(err error) {
	if m == nil {
		return
	}
	m.Checkouts.WithLabelValues(result(err)).Inc()
}

// OrderRequest records an order request persisted (or failed) by the worker.
func (m *DomainMetrics) OrderRequest(err error) {
	if m == nil {
		return
	}
	m.OrderRequests.WithLabelValues(result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
