package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"credon/internal/holder/models"
	"credon/internal/sentinel"
	"credon/pkg/domain"
)

// PostgresStore persists holder records in PostgreSQL. The at-most-one-active
// invariant is enforced by a partial unique index on contact_id for active
// statuses (see migrations).
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed holder store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const holderColumns = `id, label, contact_id, claims, connection_id, credential_exchange_id, status, created_at, updated_at`

func (s *PostgresStore) Save(ctx context.Context, rec *models.Record) error {
	claims, err := marshalClaims(rec.Claims)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO holders (` + holderColumns + `)
		VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8, $9)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(rec.ID),
		rec.Label.String(),
		string(rec.ContactID),
		claims,
		rec.ConnectionID.String(),
		rec.CredentialExchangeID.String(),
		string(rec.Status),
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("save holder: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByLabel(ctx context.Context, label domain.Label) (*models.Record, error) {
	query := `SELECT ` + holderColumns + ` FROM holders WHERE label = $1`
	return s.findOne(ctx, query, label.String())
}

func (s *PostgresStore) FindByContactID(ctx context.Context, contactID domain.ContactID) (*models.Record, error) {
	query := `
		SELECT ` + holderColumns + ` FROM holders
		WHERE contact_id = $1
		ORDER BY (status IN ('valid', 'reinstated')) DESC, updated_at DESC
		LIMIT 1
	`
	return s.findOne(ctx, query, string(contactID))
}

func (s *PostgresStore) FindByConnectionID(ctx context.Context, connectionID domain.ConnectionID) (*models.Record, error) {
	query := `SELECT ` + holderColumns + ` FROM holders WHERE connection_id = $1`
	return s.findOne(ctx, query, connectionID.String())
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Record, error) {
	query := `SELECT ` + holderColumns + ` FROM holders ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list holders: %w", err)
	}
	defer rows.Close()

	var out []*models.Record
	for rows.Next() {
		rec, err := scanHolder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, rec *models.Record) error {
	claims, err := marshalClaims(rec.Claims)
	if err != nil {
		return err
	}
	query := `
		UPDATE holders
		SET contact_id = NULLIF($2, ''), claims = $3, connection_id = NULLIF($4, ''),
		    credential_exchange_id = NULLIF($5, ''), status = $6, updated_at = now()
		WHERE label = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		rec.Label.String(),
		string(rec.ContactID),
		claims,
		rec.ConnectionID.String(),
		rec.CredentialExchangeID.String(),
		string(rec.Status),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("update holder: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update holder: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateStatusIf(ctx context.Context, label domain.Label, expect, next models.Status) (*models.Record, error) {
	query := `
		UPDATE holders
		SET status = $3, updated_at = now()
		WHERE label = $1 AND status = $2
		RETURNING ` + holderColumns
	rec, err := scanHolder(s.db.QueryRowContext(ctx, query, label.String(), string(expect), string(next)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Distinguish a missing record from a failed precondition.
			if _, findErr := s.FindByLabel(ctx, label); findErr != nil {
				return nil, findErr
			}
			return nil, sentinel.ErrConflict
		}
		// Promoting to an active status can trip the one-active-per-contact
		// index; that is a lost race, not an internal failure.
		if isUniqueViolation(err) {
			return nil, sentinel.ErrConflict
		}
		return nil, err
	}
	return rec, nil
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*models.Record, error) {
	rec, err := scanHolder(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHolder(row rowScanner) (*models.Record, error) {
	var (
		rec       models.Record
		rawID     uuid.UUID
		label     string
		contactID sql.NullString
		claims    []byte
		connID    sql.NullString
		credExID  sql.NullString
		status    string
	)
	err := row.Scan(&rawID, &label, &contactID, &claims, &connID, &credExID, &status, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rec.ID = domain.HolderID(rawID)
	rec.Label = domain.Label(label)
	rec.ContactID = domain.ContactID(contactID.String)
	rec.ConnectionID = domain.ConnectionID(connID.String)
	rec.CredentialExchangeID = domain.CredExchangeID(credExID.String)
	rec.Status = models.Status(status)
	if len(claims) > 0 {
		if err := json.Unmarshal(claims, &rec.Claims); err != nil {
			return nil, fmt.Errorf("decode holder claims: %w", err)
		}
	}
	return &rec, nil
}

func marshalClaims(claims map[string]string) ([]byte, error) {
	if claims == nil {
		return []byte("{}"), nil
	}
	raw, err := json.Marshal(claims)
	if err != nil {
		return nil, fmt.Errorf("encode holder claims: %w", err)
	}
	return raw, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
