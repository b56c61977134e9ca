package photos

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"idcards/internal/roster"
)

// memStudents is a minimal in-memory Students used to check resolver ordering.
type memStudents struct {
	byID  map[string]roster.Student
	calls []string
}

func (m *memStudents) GetStudent(_ context.Context, schoolID, id string) (roster.Student, error) {
	m.calls = append(m.calls, "get:"+id)
	st, ok := m.byID[id]
	if !ok || (schoolID != "" && st.SchoolID != schoolID) {
		return roster.Student{}, roster.ErrStudentNotFound
	}
	return st, nil
}

func (m *memStudents) FindByPhotoID(_ context.Context, schoolID, photoID string) ([]roster.Student, error) {
	m.calls = append(m.calls, "find:"+photoID)
	var out []roster.Student
	for _, st := range m.byID {
		if st.SchoolID == schoolID && st.PhotoID == photoID {
			out = append(out, st)
		}
	}
	return out, nil
}

func (m *memStudents) SetPhoto(context.Context, string, roster.PhotoUpdate) error { return nil }
func (m *memStudents) ClearPhoto(context.Context, string, string) (string, error) {
	return "", nil
}
func (m *memStudents) ClearSchoolPhotos(context.Context, string) ([]string, int64, error) {
	return nil, 0, nil
}

func TestResolverRecordIDSkipsDisplayLookup(t *testing.T) {
	m := &memStudents{byID: map[string]roster.Student{
		"S1": {ID: "S1", SchoolID: "sch", PhotoID: "102"},
		"S2": {ID: "S2", SchoolID: "sch", PhotoID: "101"},
	}}
	r := NewResolver(m, zap.NewNop())

	st, err := r.Resolve(context.Background(), "sch", "101", "S1")
	if err != nil || st.ID != "S1" {
		t.Fatalf("expected S1, got %+v %v", st, err)
	}
	if len(m.calls) != 1 || m.calls[0] != "get:S1" {
		t.Fatalf("expected a single record lookup, got %v", m.calls)
	}
}

func TestResolverMissingIdentifiers(t *testing.T) {
	r := NewResolver(&memStudents{byID: map[string]roster.Student{}}, zap.NewNop())
	if _, err := r.Resolve(context.Background(), "sch", " ", ""); !errors.Is(err, ErrMissingID) {
		t.Fatalf("expected ErrMissingID, got %v", err)
	}
}

func TestResolverZeroMatchFallsBackToRecordID(t *testing.T) {
	m := &memStudents{byID: map[string]roster.Student{"abc": {ID: "abc", SchoolID: "sch", PhotoID: "7"}}}
	r := NewResolver(m, zap.NewNop())

	st, err := r.Resolve(context.Background(), "sch", "abc", "")
	if err != nil || st.ID != "abc" {
		t.Fatalf("expected fallback hit, got %+v %v", st, err)
	}
	if len(m.calls) != 2 || m.calls[0] != "find:abc" || m.calls[1] != "get:abc" {
		t.Fatalf("expected find then get, got %v", m.calls)
	}
}
