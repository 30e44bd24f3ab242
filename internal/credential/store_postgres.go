package credential

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"idintake/pkg/platform/sentinel"
)

// uniqueViolation is the Postgres SQLSTATE for duplicate keys.
const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS credentials (
	id          TEXT PRIMARY KEY,
	subject     TEXT NOT NULL,
	public_key  BYTEA NOT NULL,
	sign_count  BIGINT NOT NULL DEFAULT 0,
	device_name TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS credentials_subject_idx ON credentials (subject, created_at);
`

// PostgresStore persists credentials in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed credential store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the credentials table if it is missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure credential schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, c Credential) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (id, subject, public_key, sign_count, device_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.Subject, c.PublicKey, int64(c.SignCount), c.DeviceName, c.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (Credential, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, subject, public_key, sign_count, device_name, created_at
		FROM credentials WHERE id = $1`, id)
	c, err := scanCredential(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Credential{}, sentinel.ErrNotFound
		}
		return Credential{}, fmt.Errorf("find credential by id: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) ListBySubject(ctx context.Context, subject string) ([]Credential, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, subject, public_key, sign_count, device_name, created_at
		FROM credentials WHERE subject = $1 ORDER BY created_at`, subject)
	if err != nil {
		return nil, fmt.Errorf("list credentials by subject: %w", err)
	}
	defer rows.Close()

	var out []Credential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list credentials by subject: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCredential(row scanner) (Credential, error) {
	var (
		c         Credential
		signCount int64
	)
	if err := row.Scan(&c.ID, &c.Subject, &c.PublicKey, &signCount, &c.DeviceName, &c.CreatedAt); err != nil {
		return Credential{}, err
	}
	c.SignCount = uint32(signCount)
	c.CreatedAt = c.CreatedAt.UTC()
	return c, nil
}
