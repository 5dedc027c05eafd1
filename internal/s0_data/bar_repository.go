package s0_data

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/valuepool/internal/contracts"
)

const (
	barsTable     = "data.daily_bars"
	saveBatchSize = 1000
)

// BarRepository implements contracts.BarStore on PostgreSQL
// ⭐ SSOT: 일별 시세 저장소는 여기서만
type BarRepository struct {
	pool *pgxpool.Pool
}

func NewBarRepository(pool *pgxpool.Pool) *BarRepository {
	return &BarRepository{pool: pool}
}

// Find runs a store query. Rows with equal sort keys are ordered by code.
func (r *BarRepository) Find(ctx context.Context, q contracts.Query) ([]contracts.Bar, error) {
	sql, args, fields, err := buildFindSQL(q)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("find bars: %w", err)
	}
	defer rows.Close()

	var bars []contracts.Bar
	for rows.Next() {
		var b contracts.Bar
		if err := rows.Scan(scanTargets(&b, fields)...); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// FindOne returns the bar of code on date
func (r *BarRepository) FindOne(ctx context.Context, date time.Time, code string) (*contracts.Bar, error) {
	fields := contracts.AllFields()
	sql := fmt.Sprintf(`SELECT %s FROM %s WHERE code = $1 AND trade_date = $2`, columnList(fields), barsTable)

	var b contracts.Bar
	err := r.pool.QueryRow(ctx, sql, code, contracts.Day(date)).Scan(scanTargets(&b, fields)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s on %s: %w", code, contracts.DateKey(date), contracts.ErrRecordNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find bar %s: %w", code, err)
	}
	return &b, nil
}

// History returns every bar of code in [from, to], ascending
func (r *BarRepository) History(ctx context.Context, code string, from, to time.Time) ([]contracts.Bar, error) {
	fields := contracts.AllFields()
	sql := fmt.Sprintf(`SELECT %s FROM %s WHERE code = $1 AND trade_date BETWEEN $2 AND $3 ORDER BY trade_date ASC`,
		columnList(fields), barsTable)

	rows, err := r.pool.Query(ctx, sql, code, contracts.Day(from), contracts.Day(to))
	if err != nil {
		return nil, fmt.Errorf("bar history %s: %w", code, err)
	}
	defer rows.Close()

	var bars []contracts.Bar
	for rows.Next() {
		var b contracts.Bar
		if err := rows.Scan(scanTargets(&b, fields)...); err != nil {
			return nil, err
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// DateRange returns the first and last stored trade date of code. ok is false when none.
func (r *BarRepository) DateRange(ctx context.Context, code string) (first, last time.Time, ok bool, err error) {
	var minDate, maxDate *time.Time
	err = r.pool.QueryRow(ctx,
		`SELECT MIN(trade_date), MAX(trade_date) FROM `+barsTable+` WHERE code = $1`, code,
	).Scan(&minDate, &maxDate)
	if err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("date range %s: %w", code, err)
	}
	if minDate == nil || maxDate == nil {
		return time.Time{}, time.Time{}, false, nil
	}
	return *minDate, *maxDate, true, nil
}

// SaveBars upserts bars in batches
func (r *BarRepository) SaveBars(ctx context.Context, bars []contracts.Bar) error {
	const upsert = `
		INSERT INTO ` + barsTable + ` (code, trade_date, open, close, high, low, volume, pe, pb)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (code, trade_date) DO UPDATE SET
			open = EXCLUDED.open,
			close = EXCLUDED.close,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			volume = EXCLUDED.volume,
			pe = EXCLUDED.pe,
			pb = EXCLUDED.pb`

	for start := 0; start < len(bars); start += saveBatchSize {
		end := start + saveBatchSize
		if end > len(bars) {
			end = len(bars)
		}

		batch := &pgx.Batch{}
		for _, b := range bars[start:end] {
			batch.Queue(upsert, b.Code, contracts.Day(b.TradeDate), b.Open, b.Close, b.High, b.Low, b.Volume, b.PE, b.PB)
		}

		br := r.pool.SendBatch(ctx, batch)
		for i := start; i < end; i++ {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("upsert bar %s %s: %w", bars[i].Code, contracts.DateKey(bars[i].TradeDate), err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("close batch: %w", err)
		}
	}
	return nil
}

// buildFindSQL turns a Query into SQL. Column names come from the Field whitelist only.
func buildFindSQL(q contracts.Query) (string, []interface{}, []contracts.Field, error) {
	if err := q.Validate(); err != nil {
		return "", nil, nil, err
	}

	fields := q.Fields
	if len(fields) == 0 {
		fields = contracts.AllFields()
	}

	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !q.TradeDate.IsZero() {
		conds = append(conds, "trade_date = "+arg(contracts.Day(q.TradeDate)))
	}
	if q.MetricRange != nil {
		col := string(q.Metric)
		conds = append(conds, fmt.Sprintf("%s > %s AND %s < %s", col, arg(q.MetricRange.Lo), col, arg(q.MetricRange.Hi)))
	}
	switch q.Volume {
	case contracts.VolumeActive:
		conds = append(conds, "volume <> 0")
	case contracts.VolumeSuspended:
		conds = append(conds, "volume = 0")
	}
	if q.Codes != nil {
		conds = append(conds, "code = ANY("+arg(q.Codes)+")")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", columnList(fields), barsTable)
	if len(conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}

	if q.SortBy != "" {
		dir := "ASC"
		if q.Direction == contracts.Descending {
			dir = "DESC"
		}
		fmt.Fprintf(&sb, " ORDER BY %s %s", q.SortBy, dir)
		if q.SortBy != contracts.FieldCode {
			sb.WriteString(", code ASC")
		}
	} else {
		sb.WriteString(" ORDER BY code ASC, trade_date ASC")
	}

	if q.Limit > 0 {
		sb.WriteString(" LIMIT " + arg(q.Limit))
	}

	return sb.String(), args, fields, nil
}

func columnList(fields []contracts.Field) string {
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = string(f)
	}
	return strings.Join(cols, ", ")
}

func scanTargets(b *contracts.Bar, fields []contracts.Field) []interface{} {
	targets := make([]interface{}, len(fields))
	for i, f := range fields {
		switch f {
		case contracts.FieldCode:
			targets[i] = &b.Code
		case contracts.FieldTradeDate:
			targets[i] = &b.TradeDate
		case contracts.FieldOpen:
			targets[i] = &b.Open
		case contracts.FieldClose:
			targets[i] = &b.Close
		case contracts.FieldHigh:
			targets[i] = &b.High
		case contracts.FieldLow:
			targets[i] = &b.Low
		case contracts.FieldVolume:
			targets[i] = &b.Volume
		case contracts.FieldPE:
			targets[i] = &b.PE
		case contracts.FieldPB:
			targets[i] = &b.PB
		}
	}
	return targets
}
