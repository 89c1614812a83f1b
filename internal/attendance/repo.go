package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrStudentNotFound means no active student matches the scanned code.
	ErrStudentNotFound = errors.New("student not found")
	// ErrDuplicateRecord means the (student_id, day) unique index rejected an insert.
	ErrDuplicateRecord = errors.New("attendance record already exists")
)

// dayFormat binds calendar days as plain date strings so comparisons
// against the DATE column never go through a timezone cast.
const dayFormat = "2006-01-02"

// Repository persists attendance data in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ResolveStudent looks up an active student by external code. Inactive or
// unmatched codes resolve to ErrStudentNotFound.
func (r *Repository) ResolveStudent(ctx context.Context, code string) (Student, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, external_code, display_name, class_id, class_label, is_active
		FROM students
		WHERE external_code = $1 AND is_active = TRUE
	`, code)
	var st Student
	if err := row.Scan(&st.ID, &st.ExternalCode, &st.DisplayName, &st.ClassID, &st.ClassLabel, &st.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Student{}, ErrStudentNotFound
		}
		return Student{}, err
	}
	return st, nil
}

// FindToday returns the student's record for the given day, or nil when none exists.
func (r *Repository) FindToday(ctx context.Context, studentID string, day time.Time) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, student_id, class_id, day, status, marked_at, created_at
		FROM attendance_records
		WHERE student_id = $1 AND day = $2
	`, studentID, day.Format(dayFormat))
	var rec Record
	if err := row.Scan(&rec.ID, &rec.StudentID, &rec.ClassID, &rec.Day, &rec.Status, &rec.MarkedAt, &rec.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// Insert writes a new record. The unique index on (student_id, day) is the
// real idempotency guarantee; a violation surfaces as ErrDuplicateRecord so
// the caller can re-query the winning record.
func (r *Repository) Insert(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.MarkedAt.IsZero() {
		rec.MarkedAt = time.Now().UTC()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records (id, student_id, class_id, day, status, marked_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at
	`, rec.ID, rec.StudentID, rec.ClassID, rec.Day.Format(dayFormat), rec.Status, rec.MarkedAt)
	if err := row.Scan(&rec.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Record{}, ErrDuplicateRecord
		}
		return Record{}, err
	}
	return rec, nil
}

// CountToday returns the present and late record counts for the given day.
func (r *Repository) CountToday(ctx context.Context, day time.Time) (present, late int, err error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM attendance_records
		WHERE day = $1
		GROUP BY status
	`, day.Format(dayFormat))
	if err != nil {
		return 0, 0, err
	}
	defer rows.Close()
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return 0, 0, err
		}
		switch status {
		case StatusPresent:
			present = count
		case StatusLate:
			late = count
		}
	}
	return present, late, rows.Err()
}

// UpsertStation ensures a scan station record exists.
func (r *Repository) UpsertStation(ctx context.Context, stationID string) error {
	if stationID == "" {
		return errors.New("station id required")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO stations (station_id)
		VALUES ($1)
		ON CONFLICT (station_id) DO NOTHING
	`, stationID)
	return err
}

// SaveRefreshToken stores a refresh token for rotation checks.
func (r *Repository) SaveRefreshToken(ctx context.Context, stationID, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (station_id, token, expires_at)
		VALUES ($1, $2, $3)
	`, stationID, token, expiresAt)
	return err
}

// RevokeRefreshToken marks a token revoked.
func (r *Repository) RevokeRefreshToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE token = $1`, token)
	return err
}
