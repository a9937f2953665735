package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/TooLazyToCreate/counseling-service/internal/model"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const uniqueViolation = pq.ErrorCode("23505")

// Search text is matched literally, like the in-memory store does.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type userRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewUserRepository(logger *zap.Logger, db *sql.DB) UserRepository {
	return &userRepo{
		db:     db,
		logger: logger,
	}
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (email, full_name, role, hashed_password) VALUES ($1, $2, $3, $4) RETURNING id`
	err := r.db.QueryRowContext(ctx, query, user.Email, user.FullName, string(user.Role), user.HashedPassword).Scan(&user.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	r.logger.Debug("User row inserted", zap.Int64("user_id", user.ID))
	return nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT id, email, full_name, role, hashed_password FROM users WHERE email = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT id, email, full_name, role, hashed_password FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *userRepo) scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	var role string
	if err := row.Scan(&user.ID, &user.Email, &user.FullName, &role, &user.HashedPassword); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	user.Role = model.Role(role)
	return user, nil
}

type noteRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewNoteRepository(logger *zap.Logger, db *sql.DB) NoteRepository {
	return &noteRepo{
		db:     db,
		logger: logger,
	}
}

func (r *noteRepo) Create(ctx context.Context, note *model.ClinicalNote) error {
	query := `INSERT INTO clinical_notes (content, created_at, patient_id, psychologist_id) VALUES ($1, $2, $3, $4) RETURNING id`
	err := r.db.QueryRowContext(ctx, query, note.Content, note.CreatedAt, note.PatientID, note.PsychologistID).Scan(&note.ID)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

func (r *noteRepo) GetByID(ctx context.Context, id int64) (*model.ClinicalNote, error) {
	query := `SELECT id, content, created_at, updated_at, patient_id, psychologist_id FROM clinical_notes WHERE id = $1`
	note := &model.ClinicalNote{}
	var updatedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, id).Scan(&note.ID, &note.Content, &note.CreatedAt, &updatedAt, &note.PatientID, &note.PsychologistID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select note: %w", err)
	}
	note.UpdatedAt = nullTime(updatedAt)
	return note, nil
}

/* Author names are resolved with a join instead of one lookup per note.
 * Empty filter values are passed as NULL so the statement stays static. */
func (r *noteRepo) List(ctx context.Context, filter model.NoteFilter) ([]model.NoteView, error) {
	query := `SELECT n.id, n.patient_id, n.content, n.created_at, n.updated_at, COALESCE(u.full_name, 'Unknown')
		FROM clinical_notes n
		LEFT JOIN users u ON u.id = n.psychologist_id
		WHERE ($1::BIGINT IS NULL OR n.patient_id = $1)
		AND ($2::TEXT IS NULL OR n.content ILIKE '%' || $2 || '%' ESCAPE '\')
		ORDER BY n.created_at DESC, n.id DESC
		LIMIT $3 OFFSET $4`

	var patientID sql.NullInt64
	if filter.PatientID != nil {
		patientID = sql.NullInt64{Int64: *filter.PatientID, Valid: true}
	}
	search := sql.NullString{String: likeEscaper.Replace(filter.Search), Valid: filter.Search != ""}

	rows, err := r.db.QueryContext(ctx, query, patientID, search, filter.Limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("select notes: %w", err)
	}
	defer rows.Close()

	result := make([]model.NoteView, 0, filter.Limit)
	for rows.Next() {
		var view model.NoteView
		var updatedAt sql.NullTime
		if err := rows.Scan(&view.ID, &view.PatientID, &view.Content, &view.CreatedAt, &updatedAt, &view.AuthorName); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		view.UpdatedAt = nullTime(updatedAt)
		result = append(result, view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return result, nil
}

func (r *noteRepo) UpdateContent(ctx context.Context, note *model.ClinicalNote) error {
	query := `UPDATE clinical_notes SET content = $1, updated_at = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, note.Content, note.UpdatedAt, note.ID)
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	return requireAffected(res)
}

func (r *noteRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM clinical_notes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}
