package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/TooLazyToCreate/counseling-service/internal/model"
)

// InMemory keeps users and notes in process memory. It backs STORAGE=memory
// and the service tests; both repositories share one lock so note listings
// can resolve author names consistently.
type InMemory struct {
	mu         sync.RWMutex
	users      map[int64]model.User
	emails     map[string]int64
	notes      map[int64]model.ClinicalNote
	lastUserID int64
	lastNoteID int64
}

func NewInMemory() *InMemory {
	return &InMemory{
		users:  make(map[int64]model.User),
		emails: make(map[string]int64),
		notes:  make(map[int64]model.ClinicalNote),
	}
}

func (m *InMemory) Users() UserRepository {
	return (*memUsers)(m)
}

func (m *InMemory) Notes() NoteRepository {
	return (*memNotes)(m)
}

type memUsers InMemory

func (r *memUsers) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.emails[user.Email]; taken {
		return ErrDuplicateEmail
	}
	r.lastUserID++
	user.ID = r.lastUserID
	r.users[user.ID] = *user
	r.emails[user.Email] = user.ID
	return nil
}

func (r *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.emails[email]
	if !ok {
		return nil, ErrNotFound
	}
	user := r.users[id]
	return &user, nil
}

func (r *memUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

type memNotes InMemory

func (r *memNotes) Create(_ context.Context, note *model.ClinicalNote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastNoteID++
	note.ID = r.lastNoteID
	r.notes[note.ID] = *note
	return nil
}

func (r *memNotes) GetByID(_ context.Context, id int64) (*model.ClinicalNote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	note, ok := r.notes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &note, nil
}

func (r *memNotes) List(_ context.Context, filter model.NoteFilter) ([]model.NoteView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	matched := make([]model.ClinicalNote, 0, len(r.notes))
	for _, note := range r.notes {
		if filter.PatientID != nil && note.PatientID != *filter.PatientID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(note.Content), search) {
			continue
		}
		matched = append(matched, note)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	if filter.Offset >= len(matched) {
		return []model.NoteView{}, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}

	result := make([]model.NoteView, 0, len(matched))
	for _, note := range matched {
		author := "Unknown"
		if u, ok := r.users[note.PsychologistID]; ok {
			author = u.FullName
		}
		result = append(result, model.NoteView{
			ID:         note.ID,
			PatientID:  note.PatientID,
			Content:    note.Content,
			CreatedAt:  note.CreatedAt,
			UpdatedAt:  note.UpdatedAt,
			AuthorName: author,
		})
	}
	return result, nil
}

func (r *memNotes) UpdateContent(_ context.Context, note *model.ClinicalNote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.notes[note.ID]
	if !ok {
		return ErrNotFound
	}
	stored.Content = note.Content
	stored.UpdatedAt = note.UpdatedAt
	r.notes[note.ID] = stored
	return nil
}

func (r *memNotes) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.notes[id]; !ok {
		return ErrNotFound
	}
	delete(r.notes, id)
	return nil
}
