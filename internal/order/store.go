package order

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Record is an order request as stored.
type Record struct {
	ID string `json:"id"`
	Request
	CreatedAt time.Time `json:"created_at"`
}

// Store persists order requests.
type Store interface {
	Insert(ctx context.Context, req Request) (bool, error)
	List(ctx context.Context, limit, offset int) ([]Record, int64, error)
}

// PGStore implements Store on the order_requests table.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore returns a Postgres-backed order request store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// Insert stores req once per reference. It reports false when the reference
// was already recorded.
func (s *PGStore) Insert(ctx context.Context, req Request) (bool, error) {
	customer, err := json.Marshal(req.Customer)
	if err != nil {
		return false, fmt.Errorf("encode customer: %w", err)
	}
	lines, err := json.Marshal(req.Lines)
	if err != nil {
		return false, fmt.Errorf("encode lines: %w", err)
	}
	promotions := req.AppliedPromotions
	if promotions == nil {
		promotions = []string{}
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO order_requests (reference, cart_id, customer, lines, regular_total, promotional_total,
			savings, delivery_fee, total, applied_promotions, requested_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (reference) DO NOTHING`,
		req.Reference, req.CartID, customer, lines, req.RegularTotal, req.PromotionalTotal,
		req.Savings, req.DeliveryFee, req.Total, promotions, req.RequestedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert order request: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// List returns order requests newest first with the overall count.
func (s *PGStore) List(ctx context.Context, limit, offset int) ([]Record, int64, error) {
	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM order_requests`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count order requests: %w", err)
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, reference, cart_id, customer, lines, regular_total, promotional_total,
			savings, delivery_fee, total, applied_promotions, requested_at, created_at
		FROM order_requests
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list order requests: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0, limit)
	for rows.Next() {
		var (
			rec      Record
			customer []byte
			lines    []byte
		)
		if err := rows.Scan(&rec.ID, &rec.Reference, &rec.CartID, &customer, &lines,
			&rec.RegularTotal, &rec.PromotionalTotal, &rec.Savings, &rec.DeliveryFee, &rec.Total,
			&rec.AppliedPromotions, &rec.RequestedAt, &rec.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan order request: %w", err)
		}
		if err := json.Unmarshal(customer, &rec.Customer); err != nil {
			return nil, 0, fmt.Errorf("decode customer: %w", err)
		}
		if err := json.Unmarshal(lines, &rec.Lines); err != nil {
			return nil, 0, fmt.Errorf("decode lines: %w", err)
		}
		records = append(records, rec)
	}
	return records, total, rows.Err()
}
