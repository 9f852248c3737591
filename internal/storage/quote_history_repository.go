package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/folio-share/internal/market"
)

// QuoteHistoryRepository archives every fresh provider fetch in ClickHouse
// and serves recent rows for charting. Appends are best-effort; a failed
// append never fails the fetch that triggered it.
type QuoteHistoryRepository struct {
	db *ClickHouseDB
}

// NewQuoteHistoryRepository creates a new quote history repository
func NewQuoteHistoryRepository(db *ClickHouseDB) *QuoteHistoryRepository {
	return &QuoteHistoryRepository{db: db}
}

// Append writes one quote row to the archive. Implements market.Archiver.
func (r *QuoteHistoryRepository) Append(ctx context.Context, quote market.Quote) error {
	query := `
		INSERT INTO quote_history
			(symbol, price, change, change_percent, high, low, open, previous_close, sector, currency, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := r.db.Exec(ctx, query,
		quote.Symbol,
		quote.Price,
		quote.Change,
		quote.ChangePercent,
		quote.High,
		quote.Low,
		quote.Open,
		quote.PreviousClose,
		quote.Sector,
		quote.Currency,
		quote.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append quote history: %w", err)
	}
	return nil
}

// QuotePoint is one archived price observation.
type QuotePoint struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"changePercent"`
	PreviousClose float64   `json:"previousClose"`
	FetchedAt     time.Time `json:"fetchedAt"`
}

// RecentBySymbol returns the most recent archived points for a symbol,
// newest first.
func (r *QuoteHistoryRepository) RecentBySymbol(ctx context.Context, symbol string, limit int) ([]QuotePoint, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := `
		SELECT symbol, price, change, change_percent, previous_close, fetched_at
		FROM quote_history
		WHERE symbol = ?
		ORDER BY fetched_at DESC
		LIMIT ?
	`

	rows, err := r.db.Conn().Query(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query quote history: %w", err)
	}
	defer rows.Close()

	var points []QuotePoint
	for rows.Next() {
		var p QuotePoint
		if err := rows.Scan(&p.Symbol, &p.Price, &p.Change, &p.ChangePercent, &p.PreviousClose, &p.FetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan quote history row: %w", err)
		}
		points = append(points, p)
	}

	return points, rows.Err()
}

func clickhouseDDLContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}
