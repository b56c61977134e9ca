package roster

import (
	"errors"
	"time"
)

var (
	ErrSchoolNotFound  = errors.New("school not found")
	ErrStudentNotFound = errors.New("student not found")
	ErrAccountNotFound = errors.New("account not found")
	ErrDuplicate       = errors.New("already exists")
	ErrInvalidWorkbook = errors.New("invalid spreadsheet")
)

// Roles an account can hold.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
)

// School owns a roster of students and a set of teacher accounts.
type School struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name" validate:"required,max=200"`
	Code      string    `db:"code" json:"code" validate:"required,max=32"`
	Address   string    `db:"address" json:"address"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Student is one pupil of one school. ID is the only safe handle for photo
// targeting; PhotoID is the roster label and may repeat.
type Student struct {
	ID          string `db:"id" json:"id"`
	SchoolID    string `db:"school_id" json:"school_id"`
	PhotoID     string `db:"photo_id" json:"photo_id" validate:"required,max=64"`
	FullName    string `db:"full_name" json:"full_name" validate:"required,max=200"`
	ClassName   string `db:"class_name" json:"class_name" validate:"required,max=100"`
	RollNo      string `db:"roll_no" json:"roll_no,omitempty"`
	FatherName  string `db:"father_name" json:"father_name,omitempty"`
	MotherName  string `db:"mother_name" json:"mother_name,omitempty"`
	DateOfBirth string `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Address     string `db:"address" json:"address,omitempty"`
	Contact     string `db:"contact" json:"contact,omitempty"`

	PhotoURL      *string    `db:"photo_url" json:"photo_url,omitempty"`
	PhotoKey      *string    `db:"photo_key" json:"-"`
	PhotoUploaded bool       `db:"photo_uploaded" json:"photo_uploaded"`
	UpdatedBy     *string    `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt     *time.Time `db:"updated_at" json:"updated_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// PhotoUpdate is the post-upload field set applied to a single student.
type PhotoUpdate struct {
	URL string
	Key string
	By  string
	At  time.Time
}

// Account is an admin or teacher login.
type Account struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	SchoolID     *string   `db:"school_id" json:"school_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// SchoolScope returns the account's school, or "" for admins.
func (a Account) SchoolScope() string {
	if a.SchoolID == nil {
		return ""
	}
	return *a.SchoolID
}
