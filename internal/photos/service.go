package photos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"idcards/internal/metrics"
	"idcards/internal/roster"
)

// DefaultMaxBytes is the upload ceiling used when none is configured.
const DefaultMaxBytes = 50 << 20

// UploadRequest is one photo upload as received from a client.
type UploadRequest struct {
	// SchoolID scopes display-id lookups; teachers always carry their own school.
	SchoolID  string
	PhotoID   string
	StudentID string
	Uploader  string
	Image     []byte
}

// UploadResult is the outcome of a successful upload.
type UploadResult struct {
	Student  roster.Student
	PhotoURL string
}

// ResetResult summarises a photo reset.
type ResetResult struct {
	Cleared int64 `json:"cleared"`
	Queued  int   `json:"queued"`
}

// Service runs the resolve, store and mutate sequence for student photos.
// There is no versioning on the photo fields: the last completed write wins.
type Service struct {
	resolver *Resolver
	students Students
	media    MediaStore
	cleanup  *Cleanup
	log      *zap.Logger
	metrics  *metrics.Metrics
	maxBytes int

	now func() time.Time
}

// NewService wires the upload protocol. cleanup may be nil, in which case
// superseded and reset objects are left in the media store.
func NewService(students Students, media MediaStore, cleanup *Cleanup, log *zap.Logger, m *metrics.Metrics, maxBytes int) *Service {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Service{
		resolver: NewResolver(students, log),
		students: students,
		media:    media,
		cleanup:  cleanup,
		log:      log,
		metrics:  m,
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

// MaxBytes is the largest accepted image payload.
func (s *Service) MaxBytes() int { return s.maxBytes }

// Upload resolves the target student, stores the image and records it on
// exactly that student. Nothing is written to the roster if any step fails.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (UploadResult, error) {
	res, err := s.upload(ctx, req)
	s.metrics.Upload(outcome(err))
	return res, err
}

func (s *Service) upload(ctx context.Context, req UploadRequest) (UploadResult, error) {
	if len(req.Image) == 0 {
		return UploadResult{}, ErrEmptyImage
	}
	if len(req.Image) > s.maxBytes {
		return UploadResult{}, ErrFileTooLarge
	}

	st, err := s.resolver.Resolve(ctx, req.SchoolID, req.PhotoID, req.StudentID)
	if err != nil {
		return UploadResult{}, err
	}

	started := s.now()
	key := fmt.Sprintf("students/%s_%d", st.ID, started.UnixNano())
	obj, err := s.media.Put(ctx, key, req.Image)
	if err != nil {
		s.log.Error("media store upload failed", zap.String("student_id", st.ID), zap.Error(err))
		return UploadResult{}, &MediaStoreError{Err: err}
	}

	update := roster.PhotoUpdate{URL: obj.URL, Key: obj.Key, By: req.Uploader, At: s.now().UTC()}
	if err := s.students.SetPhoto(ctx, st.ID, update); err != nil {
		// the stored object is now orphaned; there is no reconciliation job
		s.log.Error("record photo failed after store",
			zap.String("student_id", st.ID), zap.String("key", obj.Key), zap.Error(err))
		if errors.Is(err, roster.ErrStudentNotFound) {
			return UploadResult{}, &NotFoundError{By: ByRecordID, Value: st.ID}
		}
		return UploadResult{}, fmt.Errorf("record photo: %w", err)
	}

	if st.PhotoKey != nil && *st.PhotoKey != "" && *st.PhotoKey != obj.Key && s.cleanup != nil {
		s.cleanup.Enqueue(ctx, *st.PhotoKey)
	}

	s.metrics.UploadDuration(s.now().Sub(started))
	s.log.Info("photo uploaded",
		zap.String("student_id", st.ID),
		zap.String("photo_id", st.PhotoID),
		zap.String("uploader", req.Uploader))

	st.PhotoURL = &update.URL
	st.PhotoKey = &update.Key
	st.PhotoUploaded = true
	st.UpdatedBy = &update.By
	st.UpdatedAt = &update.At
	return UploadResult{Student: st, PhotoURL: obj.URL}, nil
}

// ResetSchoolPhotos clears the photo fields of every student in a school and
// schedules deletion of the stored objects. The reset stands even if some
// deletions cannot be scheduled.
func (s *Service) ResetSchoolPhotos(ctx context.Context, schoolID string) (ResetResult, error) {
	keys, n, err := s.students.ClearSchoolPhotos(ctx, schoolID)
	if err != nil {
		return ResetResult{}, err
	}
	res := ResetResult{Cleared: n, Queued: s.discard(ctx, keys...)}
	s.log.Info("school photos reset",
		zap.String("school_id", schoolID),
		zap.Int64("cleared", res.Cleared),
		zap.Int("queued", res.Queued))
	return res, nil
}

// ResetStudentPhoto clears one student's photo fields.
func (s *Service) ResetStudentPhoto(ctx context.Context, schoolID, studentID string) (ResetResult, error) {
	key, err := s.students.ClearPhoto(ctx, schoolID, studentID)
	if err != nil {
		if errors.Is(err, roster.ErrStudentNotFound) {
			return ResetResult{}, &NotFoundError{By: ByRecordID, Value: studentID}
		}
		return ResetResult{}, err
	}
	return ResetResult{Cleared: 1, Queued: s.discard(ctx, key)}, nil
}

// Discard schedules deletion of objects whose students were removed.
func (s *Service) Discard(ctx context.Context, keys ...string) int {
	return s.discard(ctx, keys...)
}

func (s *Service) discard(ctx context.Context, keys ...string) int {
	if s.cleanup == nil {
		return 0
	}
	return s.cleanup.Enqueue(ctx, keys...)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrStudentNotFound):
		return "not_found"
	case errors.Is(err, ErrAmbiguousStudent):
		return "ambiguous"
	case errors.Is(err, ErrMediaStore):
		return "media_store_failure"
	case errors.Is(err, ErrFileTooLarge):
		return "too_large"
	default:
		return "error"
	}
}
