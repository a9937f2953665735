package model

import "time"

type Role string

const (
	RolePatient      Role = "patient"
	RolePsychologist Role = "psychologist"
)

func (r Role) Valid() bool {
	return r == RolePatient || r == RolePsychologist
}

type User struct {
	ID             int64
	Email          string
	FullName       string
	Role           Role
	HashedPassword string
}

// PublicUser is the only user shape that leaves the service.
type PublicUser struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     Role   `json:"role"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:       u.ID,
		Email:    u.Email,
		FullName: u.FullName,
		Role:     u.Role,
	}
}

type ClinicalNote struct {
	ID             int64
	Content        string
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	PatientID      int64
	PsychologistID int64
}

type NoteView struct {
	ID         int64      `json:"id"`
	PatientID  int64      `json:"patient_id"`
	Content    string     `json:"content"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at"`
	AuthorName string     `json:"author_name"`
}

type NoteFilter struct {
	PatientID *int64
	Search    string
	Limit     int
	Offset    int
}
