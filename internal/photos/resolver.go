package photos

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"idcards/internal/roster"
)

// Students is the part of the roster the upload protocol reads and writes.
type Students interface {
	GetStudent(ctx context.Context, schoolID, id string) (roster.Student, error)
	FindByPhotoID(ctx context.Context, schoolID, photoID string) ([]roster.Student, error)
	SetPhoto(ctx context.Context, id string, u roster.PhotoUpdate) error
	ClearPhoto(ctx context.Context, schoolID, id string) (string, error)
	ClearSchoolPhotos(ctx context.Context, schoolID string) ([]string, int64, error)
}

// Resolver maps an upload request to exactly one student.
type Resolver struct {
	students Students
	log      *zap.Logger
}

// NewResolver creates a resolver over the roster.
func NewResolver(students Students, log *zap.Logger) *Resolver {
	return &Resolver{students: students, log: log}
}

// Resolve picks the target student. The record id always wins over the photo id.
// Without a record id, lookups are confined to schoolID; with one, an empty
// schoolID means any school (record ids are globally unique).
func (r *Resolver) Resolve(ctx context.Context, schoolID, photoID, studentID string) (roster.Student, error) {
	photoID = strings.TrimSpace(photoID)
	studentID = strings.TrimSpace(studentID)

	if studentID != "" {
		st, err := r.byRecordID(ctx, schoolID, studentID, ByRecordID)
		if err != nil {
			return roster.Student{}, err
		}
		if photoID != "" && photoID != st.PhotoID {
			r.log.Warn("photoId does not match resolved student",
				zap.String("student_id", st.ID),
				zap.String("request_photo_id", photoID),
				zap.String("stored_photo_id", st.PhotoID))
		}
		return st, nil
	}

	if photoID == "" {
		return roster.Student{}, ErrMissingID
	}
	if schoolID == "" {
		return roster.Student{}, ErrSchoolRequired
	}

	matches, err := r.students.FindByPhotoID(ctx, schoolID, photoID)
	if err != nil {
		return roster.Student{}, err
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		// legacy clients send the record id in the photoId field
		return r.byRecordID(ctx, schoolID, photoID, ByDisplayID)
	default:
		r.log.Warn("ambiguous photoId",
			zap.String("school_id", schoolID),
			zap.String("photo_id", photoID),
			zap.Int("matches", len(matches)))
		return roster.Student{}, &AmbiguousError{PhotoID: photoID, Count: len(matches)}
	}
}

func (r *Resolver) byRecordID(ctx context.Context, schoolID, id string, by LookupBy) (roster.Student, error) {
	st, err := r.students.GetStudent(ctx, schoolID, id)
	if errors.Is(err, roster.ErrStudentNotFound) {
		return roster.Student{}, &NotFoundError{By: by, Value: id}
	}
	return st, err
}
