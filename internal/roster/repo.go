package roster

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

const studentColumns = `id, school_id, photo_id, full_name, class_name, roll_no, father_name, mother_name,
	date_of_birth, address, contact, photo_url, photo_key, photo_uploaded, updated_by, updated_at, created_at`

// Repository persists schools, students and accounts.
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a repo.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) q(query string) string { return r.db.Rebind(query) }

// ---------- Schools ----------

// CreateSchool inserts a school and returns it with generated fields populated.
func (r *Repository) CreateSchool(ctx context.Context, s School) (School, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, r.q(`
		INSERT INTO schools (id, name, code, address, created_at)
		VALUES (?, ?, ?, ?, ?)
	`), s.ID, s.Name, s.Code, s.Address, s.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return School{}, fmt.Errorf("school code %q: %w", s.Code, ErrDuplicate)
		}
		return School{}, err
	}
	return s, nil
}

// GetSchool returns one school by id.
func (r *Repository) GetSchool(ctx context.Context, id string) (School, error) {
	var s School
	err := r.db.GetContext(ctx, &s, r.q(`SELECT id, name, code, address, created_at FROM schools WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return School{}, ErrSchoolNotFound
	}
	return s, err
}

// ListSchools returns all schools ordered by name.
func (r *Repository) ListSchools(ctx context.Context) ([]School, error) {
	schools := []School{}
	err := r.db.SelectContext(ctx, &schools, `SELECT id, name, code, address, created_at FROM schools ORDER BY name`)
	return schools, err
}

// DeleteSchool removes a school with its students and accounts. It returns the
// media keys the deleted students still referenced so the caller can clean them up.
func (r *Repository) DeleteSchool(ctx context.Context, id string) ([]string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	keys, err := photoKeys(ctx, tx, tx.Rebind(`SELECT photo_key FROM students WHERE school_id = ? AND photo_key IS NOT NULL`), id)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM students WHERE school_id = ?`), id); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM accounts WHERE school_id = ?`), id); err != nil {
		return nil, err
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM schools WHERE id = ?`), id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrSchoolNotFound
	}
	return keys, tx.Commit()
}

// ---------- Students ----------

// InsertStudents writes a batch of students in one transaction.
func (r *Repository) InsertStudents(ctx context.Context, students []Student) error {
	if len(students) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(`
		INSERT INTO students (id, school_id, photo_id, full_name, class_name, roll_no, father_name,
			mother_name, date_of_birth, address, contact, photo_uploaded, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i := range students {
		st := &students[i]
		if st.ID == "" {
			st.ID = uuid.NewString()
		}
		st.PhotoUploaded = false
		st.CreatedAt = now
		if _, err := stmt.ExecContext(ctx, st.ID, st.SchoolID, st.PhotoID, st.FullName, st.ClassName,
			st.RollNo, st.FatherName, st.MotherName, st.DateOfBirth, st.Address, st.Contact,
			false, st.CreatedAt); err != nil {
			return fmt.Errorf("insert student %s: %w", st.PhotoID, err)
		}
	}
	return tx.Commit()
}

// GetStudent returns a student by record id. A non-empty schoolID restricts the lookup to that school.
func (r *Repository) GetStudent(ctx context.Context, schoolID, id string) (Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = ?`
	args := []any{id}
	if schoolID != "" {
		query += ` AND school_id = ?`
		args = append(args, schoolID)
	}
	var st Student
	err := r.db.GetContext(ctx, &st, r.q(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return Student{}, ErrStudentNotFound
	}
	return st, err
}

// FindByPhotoID returns every student of a school carrying the given roster label.
func (r *Repository) FindByPhotoID(ctx context.Context, schoolID, photoID string) ([]Student, error) {
	students := []Student{}
	err := r.db.SelectContext(ctx, &students, r.q(`
		SELECT `+studentColumns+` FROM students
		WHERE school_id = ? AND photo_id = ?
		ORDER BY id
	`), schoolID, photoID)
	return students, err
}

// PhotoIDs returns the set of roster labels already used in a school.
func (r *Repository) PhotoIDs(ctx context.Context, schoolID string) (map[string]bool, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, r.q(`SELECT photo_id FROM students WHERE school_id = ?`), schoolID); err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// ListStudents returns a school's students ordered by full name, optionally filtered by class.
func (r *Repository) ListStudents(ctx context.Context, schoolID, className string) ([]Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE school_id = ?`
	args := []any{schoolID}
	if className != "" {
		query += ` AND class_name = ?`
		args = append(args, className)
	}
	query += ` ORDER BY full_name ASC, id ASC`

	students := []Student{}
	err := r.db.SelectContext(ctx, &students, r.q(query), args...)
	return students, err
}

// ListClasses returns the distinct class names of a school.
func (r *Repository) ListClasses(ctx context.Context, schoolID string) ([]string, error) {
	classes := []string{}
	err := r.db.SelectContext(ctx, &classes, r.q(`
		SELECT DISTINCT class_name FROM students WHERE school_id = ? ORDER BY class_name
	`), schoolID)
	return classes, err
}

// PurgeStudents deletes a school's whole roster and returns the media keys it referenced.
func (r *Repository) PurgeStudents(ctx context.Context, schoolID string) ([]string, int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, 0, err
	}
	defer tx.Rollback()

	keys, err := photoKeys(ctx, tx, tx.Rebind(`SELECT photo_key FROM students WHERE school_id = ? AND photo_key IS NOT NULL`), schoolID)
	if err != nil {
		return nil, 0, err
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM students WHERE school_id = ?`), schoolID)
	if err != nil {
		return nil, 0, err
	}
	n, _ := res.RowsAffected()
	return keys, n, tx.Commit()
}

// SetPhoto applies a photo update to exactly one student, addressed by record id.
func (r *Repository) SetPhoto(ctx context.Context, id string, u PhotoUpdate) error {
	res, err := r.db.ExecContext(ctx, r.q(`
		UPDATE students
		SET photo_url = ?, photo_key = ?, photo_uploaded = ?, updated_by = ?, updated_at = ?
		WHERE id = ?
	`), u.URL, u.Key, true, u.By, u.At.UTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStudentNotFound
	}
	return nil
}

// ClearPhoto resets one student's photo fields and returns the key it held, if any.
func (r *Repository) ClearPhoto(ctx context.Context, schoolID, id string) (string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	query := `SELECT photo_key FROM students WHERE id = ?`
	args := []any{id}
	if schoolID != "" {
		query += ` AND school_id = ?`
		args = append(args, schoolID)
	}
	var key sql.NullString
	if err := tx.GetContext(ctx, &key, tx.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrStudentNotFound
		}
		return "", err
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`
		UPDATE students
		SET photo_url = NULL, photo_key = NULL, photo_uploaded = ?, updated_by = NULL, updated_at = NULL
		WHERE id = ?
	`), false, id); err != nil {
		return "", err
	}
	return key.String, tx.Commit()
}

// ClearSchoolPhotos resets the photo fields of every student in a school and
// returns the media keys that were referenced before the reset.
func (r *Repository) ClearSchoolPhotos(ctx context.Context, schoolID string) ([]string, int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, 0, err
	}
	defer tx.Rollback()

	keys, err := photoKeys(ctx, tx, tx.Rebind(`SELECT photo_key FROM students WHERE school_id = ? AND photo_key IS NOT NULL`), schoolID)
	if err != nil {
		return nil, 0, err
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`
		UPDATE students
		SET photo_url = NULL, photo_key = NULL, photo_uploaded = ?, updated_by = NULL, updated_at = NULL
		WHERE school_id = ?
	`), false, schoolID)
	if err != nil {
		return nil, 0, err
	}
	n, _ := res.RowsAffected()
	return keys, n, tx.Commit()
}

// ---------- Accounts ----------

// CreateAccount inserts an admin or teacher login.
func (r *Repository) CreateAccount(ctx context.Context, a Account) (Account, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, r.q(`
		INSERT INTO accounts (id, username, password_hash, role, school_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), a.ID, a.Username, a.PasswordHash, a.Role, a.SchoolID, a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Account{}, fmt.Errorf("username %q: %w", a.Username, ErrDuplicate)
		}
		return Account{}, err
	}
	return a, nil
}

// GetAccountByUsername looks an account up by login name.
func (r *Repository) GetAccountByUsername(ctx context.Context, username string) (Account, error) {
	var a Account
	err := r.db.GetContext(ctx, &a, r.q(`
		SELECT id, username, password_hash, role, school_id, created_at FROM accounts WHERE username = ?
	`), username)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	return a, err
}

// GetAccount looks an account up by id.
func (r *Repository) GetAccount(ctx context.Context, id string) (Account, error) {
	var a Account
	err := r.db.GetContext(ctx, &a, r.q(`
		SELECT id, username, password_hash, role, school_id, created_at FROM accounts WHERE id = ?
	`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	return a, err
}

func photoKeys(ctx context.Context, tx *sqlx.Tx, query string, args ...any) ([]string, error) {
	keys := []string{}
	if err := tx.SelectContext(ctx, &keys, query, args...); err != nil {
		return nil, err
	}
	return keys, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
