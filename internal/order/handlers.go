package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-boutique/internal/obs"
)

// Processor consumes order tasks on the worker.
type Processor struct {
	Store   Store
	Metrics *obs.DomainMetrics
}

// Register binds the processor's task handlers on mux.
func (p *Processor) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeWhatsAppRequested, p.HandleWhatsAppRequested)
}

// HandleWhatsAppRequested records one WhatsApp checkout. Malformed payloads are
// not retried.
func (p *Processor) HandleWhatsAppRequested(ctx context.Context, t *asynq.Task) (err error) {
	defer func() { p.Metrics.OrderRequest(err) }()

	var req Request
	if err := json.Unmarshal(t.Payload(), &req); err != nil {
		return fmt.Errorf("decode order request: %v: %w", err, asynq.SkipRetry)
	}
	if req.Reference == "" {
		return fmt.Errorf("order request without reference: %w", asynq.SkipRetry)
	}

	created, err := p.Store.Insert(ctx, req)
	if err != nil {
		return err
	}
	logger := zerolog.Ctx(ctx).With().Str("reference", req.Reference).Logger()
	if !created {
		logger.Info().Msg("order request already recorded")
		return nil
	}
	logger.Info().
		Int("lines", len(req.Lines)).
		Int64("total", req.Total).
		Msg("order request recorded")
	return nil
}

// IsPermanent reports whether err was marked as not worth retrying.
func IsPermanent(err error) bool {
	return errors.Is(err, asynq.SkipRetry)
}
