package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lotshoppr_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists leads in Postgres. The conversation lives in an
// append-only table; SELECT ... FOR UPDATE serializes writers per lead.
type PostgresStore struct {
	pool *pgxpool.Pool
	opts options
}

// NewPostgresStore creates a store on an existing pool. Run db.RunMigrations first.
func NewPostgresStore(pool *pgxpool.Pool, opts ...Option) *PostgresStore {
	return &PostgresStore{pool: pool, opts: buildOptions(opts)}
}

const leadColumns = `id, created_at, updated_at, status, match_type, customer, vehicle, constraints, dealer_emails`

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *PostgresStore) Create(ctx context.Context, lead domain.Lead) (domain.Lead, error) {
	lead, err := prepareCreate(lead, s.opts.now())
	if err != nil {
		return domain.Lead{}, err
	}

	customer, vehicle, constraints, err := encodeLeadDocs(lead)
	if err != nil {
		return domain.Lead{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Lead{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO leads (`+leadColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, lead.ID, lead.CreatedAt, lead.UpdatedAt, string(lead.Status), matchTypeParam(lead.MatchType),
		customer, vehicle, constraints, lead.DealerEmails)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.Lead{}, ErrAlreadyExists
		}
		return domain.Lead{}, err
	}

	if err := insertEntries(ctx, tx, lead.ID, 0, lead.Conversation); err != nil {
		return domain.Lead{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Lead{}, err
	}
	return lead, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	return loadLead(ctx, s.pool, id, false)
}

func (s *PostgresStore) Update(ctx context.Context, id uuid.UUID, params UpdateLeadParams) (domain.Lead, error) {
	return updateVia(ctx, s, id, params)
}

func (s *PostgresStore) AppendConversation(ctx context.Context, id uuid.UUID, entry domain.ConversationEntry) (domain.Lead, error) {
	return appendVia(ctx, s, id, entry)
}

func (s *PostgresStore) Mutate(ctx context.Context, id uuid.UUID, fn MutateFunc) (domain.Lead, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Lead{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	current, err := loadLead(ctx, tx, id, true)
	if err != nil {
		return domain.Lead{}, err
	}

	next, changed, err := applyMutation(current, fn, s.opts.now())
	if err != nil {
		return domain.Lead{}, err
	}
	if !changed {
		return current, nil
	}

	_, err = tx.Exec(ctx, `
		UPDATE leads
		SET status = $2, match_type = $3, dealer_emails = $4, updated_at = $5
		WHERE id = $1
	`, id, string(next.Status), matchTypeParam(next.MatchType), next.DealerEmails, next.UpdatedAt)
	if err != nil {
		return domain.Lead{}, err
	}

	start := len(current.Conversation)
	if err := insertEntries(ctx, tx, id, start, next.Conversation[start:]); err != nil {
		return domain.Lead{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Lead{}, err
	}
	return next, nil
}

func (s *PostgresStore) List(ctx context.Context, params ListParams) ([]domain.Lead, error) {
	var status *string
	if params.Status != "" {
		v := string(params.Status)
		status = &v
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, status, normalizeLimit(params.Limit), max(params.Offset, 0))
	if err != nil {
		return nil, err
	}
	items, err := pgx.CollectRows(rows, scanLead)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []domain.Lead{}, nil
	}

	ids := make([]uuid.UUID, len(items))
	byID := make(map[uuid.UUID]int, len(items))
	for i, lead := range items {
		ids[i] = lead.ID
		byID[lead.ID] = i
	}

	convRows, err := s.pool.Query(ctx, `
		SELECT lead_id, sender, dealer, message_id, body, at
		FROM lead_conversation
		WHERE lead_id = ANY($1)
		ORDER BY lead_id, seq ASC
	`, ids)
	if err != nil {
		return nil, err
	}
	defer convRows.Close()

	for convRows.Next() {
		var leadID uuid.UUID
		entry, err := scanEntry(convRows, &leadID)
		if err != nil {
			return nil, err
		}
		i := byID[leadID]
		items[i].Conversation = append(items[i].Conversation, entry)
	}
	return items, convRows.Err()
}

func loadLead(ctx context.Context, q querier, id uuid.UUID, forUpdate bool) (domain.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	rows, err := q.Query(ctx, query, id)
	if err != nil {
		return domain.Lead{}, err
	}
	lead, err := pgx.CollectExactlyOneRow(rows, scanLead)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	if err != nil {
		return domain.Lead{}, err
	}

	convRows, err := q.Query(ctx, `
		SELECT lead_id, sender, dealer, message_id, body, at
		FROM lead_conversation
		WHERE lead_id = $1
		ORDER BY seq ASC
	`, id)
	if err != nil {
		return domain.Lead{}, err
	}
	defer convRows.Close()

	for convRows.Next() {
		var leadID uuid.UUID
		entry, err := scanEntry(convRows, &leadID)
		if err != nil {
			return domain.Lead{}, err
		}
		lead.Conversation = append(lead.Conversation, entry)
	}
	return lead, convRows.Err()
}

func scanLead(row pgx.CollectableRow) (domain.Lead, error) {
	var (
		lead                           domain.Lead
		status                         string
		matchType                      *string
		customer, vehicle, constraints []byte
	)
	if err := row.Scan(&lead.ID, &lead.CreatedAt, &lead.UpdatedAt, &status, &matchType,
		&customer, &vehicle, &constraints, &lead.DealerEmails); err != nil {
		return domain.Lead{}, err
	}
	lead.Status = domain.Status(status)
	if matchType != nil {
		lead.MatchType = domain.MatchType(*matchType)
	}
	if err := json.Unmarshal(customer, &lead.Customer); err != nil {
		return domain.Lead{}, fmt.Errorf("decode customer: %w", err)
	}
	if err := json.Unmarshal(vehicle, &lead.Vehicle); err != nil {
		return domain.Lead{}, fmt.Errorf("decode vehicle: %w", err)
	}
	if err := json.Unmarshal(constraints, &lead.Constraints); err != nil {
		return domain.Lead{}, fmt.Errorf("decode constraints: %w", err)
	}
	if lead.DealerEmails == nil {
		lead.DealerEmails = []string{}
	}
	lead.Conversation = []domain.ConversationEntry{}
	return lead, nil
}

func scanEntry(rows pgx.Rows, leadID *uuid.UUID) (domain.ConversationEntry, error) {
	var (
		entry  domain.ConversationEntry
		sender string
		at     time.Time
	)
	if err := rows.Scan(leadID, &sender, &entry.Dealer, &entry.MessageID, &entry.Text, &at); err != nil {
		return domain.ConversationEntry{}, err
	}
	entry.From = domain.Sender(sender)
	entry.At = at.UTC()
	return entry, nil
}

func insertEntries(ctx context.Context, tx pgx.Tx, leadID uuid.UUID, startSeq int, entries []domain.ConversationEntry) error {
	if len(entries) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for i, entry := range entries {
		batch.Queue(`
			INSERT INTO lead_conversation (lead_id, seq, sender, dealer, message_id, body, at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, leadID, startSeq+i, string(entry.From), entry.Dealer, entry.MessageID, entry.Text, entry.At)
	}
	return tx.SendBatch(ctx, batch).Close()
}

func encodeLeadDocs(lead domain.Lead) (customer, vehicle, constraints []byte, err error) {
	if customer, err = json.Marshal(lead.Customer); err != nil {
		return nil, nil, nil, err
	}
	if vehicle, err = json.Marshal(lead.Vehicle); err != nil {
		return nil, nil, nil, err
	}
	if constraints, err = json.Marshal(lead.Constraints); err != nil {
		return nil, nil, nil, err
	}
	return customer, vehicle, constraints, nil
}

func matchTypeParam(m domain.MatchType) *string {
	if m == domain.MatchNone {
		return nil
	}
	v := string(m)
	return &v
}

var _ Store = (*PostgresStore)(nil)
