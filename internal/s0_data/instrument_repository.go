package s0_data

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/valuepool/internal/contracts"
)

// InstrumentRepository persists the crawlable universe
type InstrumentRepository struct {
	pool *pgxpool.Pool
}

func NewInstrumentRepository(pool *pgxpool.Pool) *InstrumentRepository {
	return &InstrumentRepository{pool: pool}
}

// List returns active instruments of kind, ordered by code
func (r *InstrumentRepository) List(ctx context.Context, kind contracts.InstrumentKind) ([]contracts.Instrument, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT code, name, market, kind, status
		FROM data.instruments
		WHERE kind = $1 AND status = 'active'
		ORDER BY code
	`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list instruments: %w", err)
	}
	defer rows.Close()

	var out []contracts.Instrument
	for rows.Next() {
		var in contracts.Instrument
		var k string
		if err := rows.Scan(&in.Code, &in.Name, &in.Market, &k, &in.Status); err != nil {
			return nil, fmt.Errorf("scan instrument: %w", err)
		}
		in.Kind = contracts.InstrumentKind(k)
		out = append(out, in)
	}
	return out, rows.Err()
}

// Upsert stores instruments, refreshing name, market and status
func (r *InstrumentRepository) Upsert(ctx context.Context, instruments []contracts.Instrument) error {
	if len(instruments) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, in := range instruments {
		status := in.Status
		if status == "" {
			status = "active"
		}
		batch.Queue(`
			INSERT INTO data.instruments (code, name, market, kind, status, updated_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
			ON CONFLICT (code) DO UPDATE SET
				name = EXCLUDED.name,
				market = EXCLUDED.market,
				kind = EXCLUDED.kind,
				status = EXCLUDED.status,
				updated_at = NOW()
		`, in.Code, in.Name, in.Market, string(in.Kind), status)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()
	for _, in := range instruments {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert instrument %s: %w", in.Code, err)
		}
	}
	return nil
}
