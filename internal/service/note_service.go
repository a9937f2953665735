package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/TooLazyToCreate/counseling-service/internal/model"
	"github.com/TooLazyToCreate/counseling-service/internal/repository"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	DefaultNoteLimit = 20
	MaxNoteLimit     = 100
	unknownAuthor    = "Unknown"
)

type NoteCreateRequest struct {
	PatientID int64  `json:"patient_id" validate:"required,gt=0"`
	Content   string `json:"content" validate:"required"`
}

type NoteUpdateRequest struct {
	Content *string `json:"content"`
}

type NoteService struct {
	logger   *zap.Logger
	notes    repository.NoteRepository
	users    repository.UserRepository
	validate *validator.Validate
	now      func() time.Time
}

func NewNoteService(logger *zap.Logger, notes repository.NoteRepository, users repository.UserRepository) *NoteService {
	return &NoteService{
		logger:   logger,
		notes:    notes,
		users:    users,
		validate: newValidator(),
		now:      time.Now,
	}
}

func ensurePsychologist(user *model.User) error {
	if user == nil || user.Role != model.RolePsychologist {
		return ErrForbidden
	}
	return nil
}

func (service *NoteService) Create(ctx context.Context, author *model.User, req NoteCreateRequest) (*model.NoteView, error) {
	if err := ensurePsychologist(author); err != nil {
		return nil, err
	}
	if err := validateStruct(service.validate, &req); err != nil {
		return nil, err
	}

	patient, err := service.users.GetByID(ctx, req.PatientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("lookup patient: %w", err)
	}
	if patient.Role != model.RolePatient {
		return nil, ErrNotAPatient
	}

	note := &model.ClinicalNote{
		Content:        req.Content,
		CreatedAt:      service.now().UTC(),
		PatientID:      patient.ID,
		PsychologistID: author.ID,
	}
	if err = service.notes.Create(ctx, note); err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}

	service.logger.Info("Clinical note created",
		zap.Int64("note_id", note.ID),
		zap.Int64("patient_id", note.PatientID),
		zap.Int64("author_id", author.ID))
	return viewOf(note, author.FullName), nil
}

func (service *NoteService) List(ctx context.Context, reader *model.User, filter model.NoteFilter) ([]model.NoteView, error) {
	if err := ensurePsychologist(reader); err != nil {
		return nil, err
	}
	filter.Search = strings.TrimSpace(filter.Search)
	switch {
	case filter.Limit <= 0:
		filter.Limit = DefaultNoteLimit
	case filter.Limit > MaxNoteLimit:
		filter.Limit = MaxNoteLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	views, err := service.notes.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return views, nil
}

func (service *NoteService) Get(ctx context.Context, reader *model.User, id int64) (*model.NoteView, error) {
	if err := ensurePsychologist(reader); err != nil {
		return nil, err
	}
	note, err := service.getNote(ctx, id)
	if err != nil {
		return nil, err
	}
	return viewOf(note, service.authorName(ctx, note.PsychologistID)), nil
}

// Update changes the content of a note. Only its author may do so.
func (service *NoteService) Update(ctx context.Context, author *model.User, id int64, req NoteUpdateRequest) (*model.NoteView, error) {
	if err := ensurePsychologist(author); err != nil {
		return nil, err
	}
	note, err := service.getNote(ctx, id)
	if err != nil {
		return nil, err
	}
	if note.PsychologistID != author.ID {
		return nil, ErrNotAuthor
	}

	if req.Content != nil {
		if *req.Content == "" {
			return nil, &ValidationError{Field: "content", Reason: "field required"}
		}
		note.Content = *req.Content
	}
	updatedAt := service.now().UTC()
	note.UpdatedAt = &updatedAt

	if err = service.notes.UpdateContent(ctx, note); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoteNotFound
		}
		return nil, fmt.Errorf("update note: %w", err)
	}
	return viewOf(note, author.FullName), nil
}

func (service *NoteService) Delete(ctx context.Context, author *model.User, id int64) error {
	if err := ensurePsychologist(author); err != nil {
		return err
	}
	note, err := service.getNote(ctx, id)
	if err != nil {
		return err
	}
	if note.PsychologistID != author.ID {
		return ErrNotAuthor
	}
	if err = service.notes.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNoteNotFound
		}
		return fmt.Errorf("delete note: %w", err)
	}

	service.logger.Info("Clinical note deleted", zap.Int64("note_id", id), zap.Int64("author_id", author.ID))
	return nil
}

func (service *NoteService) getNote(ctx context.Context, id int64) (*model.ClinicalNote, error) {
	note, err := service.notes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoteNotFound
		}
		return nil, fmt.Errorf("lookup note: %w", err)
	}
	return note, nil
}

func (service *NoteService) authorName(ctx context.Context, authorID int64) string {
	author, err := service.users.GetByID(ctx, authorID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			service.logger.Warn("Failed to resolve note author", zap.Error(err), zap.Int64("author_id", authorID))
		}
		return unknownAuthor
	}
	return author.FullName
}

func viewOf(note *model.ClinicalNote, authorName string) *model.NoteView {
	return &model.NoteView{
		ID:         note.ID,
		PatientID:  note.PatientID,
		Content:    note.Content,
		CreatedAt:  note.CreatedAt,
		UpdatedAt:  note.UpdatedAt,
		AuthorName: authorName,
	}
}
