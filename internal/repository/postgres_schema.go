package repository

import (
	"context"
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS leads (
	position            BIGSERIAL,
	id                  UUID PRIMARY KEY,
	first_name          TEXT NOT NULL,
	last_name           TEXT NOT NULL,
	email               TEXT NOT NULL,
	linkedin_profile    TEXT NOT NULL,
	visas_of_interest   TEXT[] NOT NULL,
	resume_file_name    TEXT,
	resume_size         BIGINT,
	resume_content_type TEXT,
	additional_info     TEXT NOT NULL DEFAULT '',
	status              TEXT NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id            UUID PRIMARY KEY,
	email         TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	first_name    TEXT NOT NULL,
	last_name     TEXT NOT NULL,
	role          TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS users_email_lower_idx ON users (lower(email));
`

// EnsureSchema creates the leads and users tables when missing
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
