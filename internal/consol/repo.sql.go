package consol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrRunNotFound indicates the requested run ID is not stored.
var ErrRunNotFound = errors.New("consol: run not found")

// ErrDuplicateRun indicates a run envelope with the same ID already exists.
var ErrDuplicateRun = errors.New("consol: duplicate run")

const uniqueViolation = "23505"

// Repository provides persistence for consolidation inputs and run outputs.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a consolidation repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EntityRecords loads the flat entity catalogue in hierarchy display order.
func (r *Repository) EntityRecords(ctx context.Context) ([]EntityRecord, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("consol repo not initialised")
	}
	const query = `
		SELECT id, name, COALESCE(parent_id, ''), ownership_pct::text, COALESCE(method, '')
		FROM consol_entities
		ORDER BY sort_order, id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("consol repo: entities: %w", err)
	}
	defer rows.Close()

	var records []EntityRecord
	for rows.Next() {
		var rec EntityRecord
		var pctText, method string
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.ParentID, &pctText, &method); err != nil {
			return nil, fmt.Errorf("consol repo: scan entity: %w", err)
		}
		rec.OwnershipPct, err = decimal.NewFromString(pctText)
		if err != nil {
			return nil, fmt.Errorf("consol repo: ownership pct for %s: %w", rec.ID, err)
		}
		rec.Method = Method(method)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// TransactionsForPeriod loads the period's ledger lines in posting order.
func (r *Repository) TransactionsForPeriod(ctx context.Context, period string) ([]LedgerTransaction, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("consol repo not initialised")
	}
	const query = `
		SELECT entity_id, account_id, account_name, COALESCE(category, ''),
		       amount::text, posted_on, COALESCE(description, ''),
		       COALESCE(reference, ''), currency, basis
		FROM ledger_transactions
		WHERE period_code = $1
		ORDER BY posted_on, entity_id, account_id, amount`
	rows, err := r.pool.Query(ctx, query, period)
	if err != nil {
		return nil, fmt.Errorf("consol repo: transactions: %w", err)
	}
	defer rows.Close()

	var txns []LedgerTransaction
	for rows.Next() {
		var t LedgerTransaction
		var category, amountText, basis string
		var postedOn time.Time
		if err := rows.Scan(&t.EntityID, &t.AccountID, &t.AccountName, &category,
			&amountText, &postedOn, &t.Description, &t.Reference, &t.Currency, &basis); err != nil {
			return nil, fmt.Errorf("consol repo: scan transaction: %w", err)
		}
		t.Amount, err = decimal.NewFromString(amountText)
		if err != nil {
			return nil, fmt.Errorf("consol repo: amount for %s/%s: %w", t.EntityID, t.AccountID, err)
		}
		t.Category = AccountCategory(category)
		t.Date = postedOn
		t.Basis = Basis(basis)
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// SaveRun stores a run envelope as JSON keyed by its run ID.
func (r *Repository) SaveRun(ctx context.Context, res *ConsolidatedResult) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("consol repo not initialised")
	}
	if res == nil {
		return fmt.Errorf("consol repo: nil run")
	}
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("consol repo: encode run: %w", err)
	}
	const query = `
		INSERT INTO consolidation_runs (id, period, payload, created_at)
		VALUES ($1, $2, $3, now())`
	if _, err := r.pool.Exec(ctx, query, res.RunID, res.Period, payload); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateRun
		}
		return fmt.Errorf("consol repo: insert run: %w", err)
	}
	return nil
}

// GetRun fetches a stored run envelope by ID.
func (r *Repository) GetRun(ctx context.Context, id string) (*ConsolidatedResult, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("consol repo not initialised")
	}
	const query = `SELECT payload FROM consolidation_runs WHERE id = $1`
	var payload []byte
	if err := r.pool.QueryRow(ctx, query, id).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("consol repo: select run: %w", err)
	}
	var res ConsolidatedResult
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, fmt.Errorf("consol repo: decode run: %w", err)
	}
	return &res, nil
}
