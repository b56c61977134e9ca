package photos

import (
	"errors"
	"fmt"
)

var (
	ErrStudentNotFound  = errors.New("student not found")
	ErrAmbiguousStudent = errors.New("ambiguous student")
	ErrMediaStore       = errors.New("media store failure")
	ErrFileTooLarge     = errors.New("file too large")
	ErrEmptyImage       = errors.New("empty image")
	ErrMissingID        = errors.New("photoId or studentId required")
	ErrSchoolRequired   = errors.New("schoolId required when studentId is absent")
)

// LookupBy names the identifier a failed lookup used.
type LookupBy string

const (
	ByRecordID  LookupBy = "studentId"
	ByDisplayID LookupBy = "photoId"
)

// NotFoundError reports which identifier failed to match a student.
type NotFoundError struct {
	By    LookupBy
	Value string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no student with %s %q", e.By, e.Value)
}

func (e *NotFoundError) Unwrap() error { return ErrStudentNotFound }

// AmbiguousError is returned when a display identifier matches several students
// and no record identifier was given.
type AmbiguousError struct {
	PhotoID string
	Count   int
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("%d students share photoId %q; resend with studentId", e.Count, e.PhotoID)
}

func (e *AmbiguousError) Unwrap() error { return ErrAmbiguousStudent }

// MediaStoreError wraps a failed write to the media store.
type MediaStoreError struct {
	Err error
}

func (e *MediaStoreError) Error() string { return "media store: " + e.Err.Error() }

func (e *MediaStoreError) Unwrap() []error { return []error{ErrMediaStore, e.Err} }
