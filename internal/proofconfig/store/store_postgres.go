package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"credon/internal/proofconfig/models"
	"credon/internal/sentinel"
	"credon/pkg/domain"
)

// PostgresStore persists proof configs in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed proof config store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, cfg *models.Config) error {
	attrs, err := json.Marshal(cfg.Attributes)
	if err != nil {
		return fmt.Errorf("encode proof config attributes: %w", err)
	}
	var predicate []byte
	if cfg.Predicate != nil {
		predicate, err = json.Marshal(cfg.Predicate)
		if err != nil {
			return fmt.Errorf("encode proof config predicate: %w", err)
		}
	}
	query := `
		INSERT INTO proof_configs (id, owner_label, cred_def_id, attributes, predicate, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.db.ExecContext(ctx, query,
		cfg.ID, cfg.OwnerLabel.String(), cfg.CredDefID.String(), attrs, predicate, cfg.CreatedAt)
	if err != nil {
		return fmt.Errorf("append proof config: %w", err)
	}
	return nil
}

func (s *PostgresStore) Current(ctx context.Context, owner domain.Label) (*models.Config, error) {
	query := `
		SELECT id, owner_label, cred_def_id, attributes, predicate, created_at
		FROM proof_configs
		WHERE owner_label = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	cfg, err := scanConfig(s.db.QueryRowContext(ctx, query, owner.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return cfg, nil
}

func (s *PostgresStore) ListByOwner(ctx context.Context, owner domain.Label) ([]*models.Config, error) {
	query := `
		SELECT id, owner_label, cred_def_id, attributes, predicate, created_at
		FROM proof_configs
		WHERE owner_label = $1
		ORDER BY created_at
	`
	rows, err := s.db.QueryContext(ctx, query, owner.String())
	if err != nil {
		return nil, fmt.Errorf("list proof configs: %w", err)
	}
	defer rows.Close()

	var out []*models.Config
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfig(row rowScanner) (*models.Config, error) {
	var (
		cfg       models.Config
		owner     string
		credDefID string
		attrs     []byte
		predicate []byte
	)
	if err := row.Scan(&cfg.ID, &owner, &credDefID, &attrs, &predicate, &cfg.CreatedAt); err != nil {
		return nil, err
	}
	cfg.OwnerLabel = domain.Label(owner)
	cfg.CredDefID = domain.CredDefID(credDefID)
	if err := json.Unmarshal(attrs, &cfg.Attributes); err != nil {
		return nil, fmt.Errorf("decode proof config attributes: %w", err)
	}
	if len(predicate) > 0 {
		cfg.Predicate = &models.Predicate{}
		if err := json.Unmarshal(predicate, cfg.Predicate); err != nil {
			return nil, fmt.Errorf("decode proof config predicate: %w", err)
		}
	}
	return &cfg, nil
}
