package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/aryan0dhankhar/leadintake/internal/domain"
)

const leadColumns = `id, first_name, last_name, email, linkedin_profile, visas_of_interest,
	resume_file_name, resume_size, resume_content_type, additional_info, status, created_at, updated_at`

// PostgresLeadRepository implements domain.LeadRepository using PostgreSQL
type PostgresLeadRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresLeadRepository creates a new lead repository
func NewPostgresLeadRepository(db *sql.DB, logger *slog.Logger) *PostgresLeadRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresLeadRepository{
		db:     db,
		logger: logger,
	}
}

// Append inserts a new pending lead
func (r *PostgresLeadRepository) Append(ctx context.Context, draft domain.LeadDraft) (*domain.Lead, error) {
	lead := newLeadRecord(draft)

	query := `
		INSERT INTO leads (` + leadColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(ctx, query,
		lead.ID,
		lead.FirstName,
		lead.LastName,
		lead.Email,
		lead.LinkedInProfile,
		pq.Array(lead.VisasOfInterest),
		lead.Resume.FileName,
		lead.Resume.Size,
		lead.Resume.ContentType,
		lead.AdditionalInfo,
		string(lead.Status),
		lead.CreatedAt,
		lead.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("failed to insert lead",
			slog.String("lead_id", lead.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to insert lead: %w", err)
	}

	return lead, nil
}

// ListAll returns every lead in insertion order
func (r *PostgresLeadRepository) ListAll(ctx context.Context) ([]domain.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads ORDER BY position ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("failed to list leads", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	leads := []domain.Lead{}
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, *lead)
	}

	return leads, rows.Err()
}

// FindByID retrieves a lead by ID
func (r *PostgresLeadRepository) FindByID(ctx context.Context, id string) (*domain.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id::text = $1`

	lead, err := scanLead(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrLeadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return lead, nil
}

// DeleteByID removes a lead; zero affected rows is not an error
func (r *PostgresLeadRepository) DeleteByID(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM leads WHERE id::text = $1`, id); err != nil {
		return fmt.Errorf("failed to delete lead: %w", err)
	}
	return nil
}

// SetStatus overwrites the status of an existing lead
func (r *PostgresLeadRepository) SetStatus(ctx context.Context, id string, status domain.LeadStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE leads SET status = $1, updated_at = $2 WHERE id::text = $3`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update lead status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrLeadNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*domain.Lead, error) {
	var (
		lead        domain.Lead
		visas       pq.StringArray
		fileName    sql.NullString
		size        sql.NullInt64
		contentType sql.NullString
		status      string
	)

	err := row.Scan(
		&lead.ID,
		&lead.FirstName,
		&lead.LastName,
		&lead.Email,
		&lead.LinkedInProfile,
		&visas,
		&fileName,
		&size,
		&contentType,
		&lead.AdditionalInfo,
		&status,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	lead.VisasOfInterest = []string(visas)
	lead.Status = domain.LeadStatus(status)
	if fileName.Valid || size.Valid || contentType.Valid {
		lead.Resume = &domain.ResumeFile{
			FileName:    fileName.String,
			Size:        size.Int64,
			ContentType: contentType.String,
		}
	}
	return &lead, nil
}
