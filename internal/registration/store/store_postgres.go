package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"signup/internal/platform/postgres"
	"signup/internal/registration/models"
)

// PostgresStore persists registrations in PostgreSQL. The unique index on
// lower(email) and the supplement foreign key carry the invariants; each
// call is a single statement.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed registration store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) InsertRegistration(ctx context.Context, record models.RegistrationRecord) (models.RegistrationID, error) {
	query := `
		INSERT INTO registrations (name, email, phone, role, university, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	var id uuid.UUID
	err := s.db.QueryRowContext(ctx, query,
		record.Name,
		record.Email,
		record.Phone,
		string(record.Role),
		record.University,
		record.CreatedAt,
	).Scan(&id)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return models.RegistrationID{}, ErrDuplicateEmail
		}
		return models.RegistrationID{}, fmt.Errorf("insert registration: %w", err)
	}
	return models.RegistrationID(id), nil
}

func (s *PostgresStore) UpsertSupplemental(ctx context.Context, id models.RegistrationID, record models.SupplementalInfoRecord) error {
	query := `
		INSERT INTO registration_supplements (registration_id, major, education_level, previous_experience, used_service_before, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (registration_id) DO UPDATE SET
			major = EXCLUDED.major,
			education_level = EXCLUDED.education_level,
			previous_experience = EXCLUDED.previous_experience,
			used_service_before = EXCLUDED.used_service_before,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(id),
		record.Major,
		string(record.EducationLevel),
		record.PreviousExperience,
		record.UsedServiceBefore,
		record.UpdatedAt,
	)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("upsert supplemental: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindRegistration(ctx context.Context, id models.RegistrationID) (*models.RegistrationRecord, error) {
	query := `
		SELECT id, name, email, phone, role, university, created_at
		FROM registrations
		WHERE id = $1
	`
	var (
		record models.RegistrationRecord
		rawID  uuid.UUID
		role   string
	)
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(id)).Scan(
		&rawID, &record.Name, &record.Email, &record.Phone, &role, &record.University, &record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find registration: %w", err)
	}
	record.ID = models.RegistrationID(rawID)
	record.Role = models.Role(role)
	return &record, nil
}

func (s *PostgresStore) FindSupplemental(ctx context.Context, id models.RegistrationID) (*models.SupplementalInfoRecord, error) {
	query := `
		SELECT major, education_level, previous_experience, used_service_before, updated_at
		FROM registration_supplements
		WHERE registration_id = $1
	`
	record := models.SupplementalInfoRecord{RegistrationID: id}
	var level string
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(id)).Scan(
		&record.Major, &level, &record.PreviousExperience, &record.UsedServiceBefore, &record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find supplemental: %w", err)
	}
	record.EducationLevel = models.EducationLevel(level)
	return &record, nil
}
