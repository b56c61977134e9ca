package roster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// RowError describes one rejected spreadsheet row. Row is 1-based as shown in spreadsheet tools.
type RowError struct {
	Sheet   string `json:"sheet"`
	Row     int    `json:"row"`
	PhotoID string `json:"photo_id,omitempty"`
	Message string `json:"message"`
}

// ImportReport summarises a roster import.
type ImportReport struct {
	Created int        `json:"created"`
	Skipped int        `json:"skipped"`
	Classes []string   `json:"classes"`
	Errors  []RowError `json:"errors"`
}

// Importer turns a workbook into students. Every sheet is a class; the first row is a header.
// Columns: photo id, full name, roll no, father name, mother name, date of birth, address, contact.
type Importer struct {
	repo     *Repository
	validate *validator.Validate
	log      *zap.Logger
}

// NewImporter creates an importer backed by a repository.
func NewImporter(repo *Repository, log *zap.Logger) *Importer {
	return &Importer{repo: repo, validate: validator.New(), log: log}
}

// Import parses the workbook and inserts every valid row. Bad rows are reported, never fatal.
// A photo id may appear only once per school; later duplicates are rejected.
func (im *Importer) Import(ctx context.Context, schoolID string, r io.Reader) (ImportReport, error) {
	if _, err := im.repo.GetSchool(ctx, schoolID); err != nil {
		return ImportReport{}, err
	}

	book, err := excelize.OpenReader(r)
	if err != nil {
		return ImportReport{}, fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
	}
	defer book.Close()

	seen, err := im.repo.PhotoIDs(ctx, schoolID)
	if err != nil {
		return ImportReport{}, err
	}

	report := ImportReport{Classes: []string{}, Errors: []RowError{}}
	var batch []Student
	for _, sheet := range book.GetSheetList() {
		rows, err := book.GetRows(sheet)
		if err != nil {
			report.Errors = append(report.Errors, RowError{Sheet: sheet, Message: "unreadable sheet: " + err.Error()})
			continue
		}
		className := strings.TrimSpace(sheet)
		added := 0
		for i, row := range rows {
			if i == 0 {
				continue
			}
			if blank(row) {
				continue
			}
			st := rowToStudent(schoolID, className, row)
			if err := im.validate.Struct(st); err != nil {
				report.Errors = append(report.Errors, RowError{Sheet: sheet, Row: i + 1, PhotoID: st.PhotoID, Message: describe(err)})
				report.Skipped++
				continue
			}
			if seen[st.PhotoID] {
				report.Errors = append(report.Errors, RowError{Sheet: sheet, Row: i + 1, PhotoID: st.PhotoID, Message: "duplicate photo id in school"})
				report.Skipped++
				continue
			}
			seen[st.PhotoID] = true
			batch = append(batch, st)
			added++
		}
		if added > 0 {
			report.Classes = append(report.Classes, className)
		}
	}

	if err := im.repo.InsertStudents(ctx, batch); err != nil {
		return ImportReport{}, err
	}
	report.Created = len(batch)
	im.log.Info("roster imported",
		zap.String("school_id", schoolID),
		zap.Int("created", report.Created),
		zap.Int("skipped", report.Skipped))
	return report, nil
}

func rowToStudent(schoolID, className string, row []string) Student {
	col := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	return Student{
		SchoolID:    schoolID,
		ClassName:   className,
		PhotoID:     col(0),
		FullName:    col(1),
		RollNo:      col(2),
		FatherName:  col(3),
		MotherName:  col(4),
		DateOfBirth: col(5),
		Address:     col(6),
		Contact:     col(7),
	}
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		switch e.ActualTag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", e.Field()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s is too long", e.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", e.Field()))
		}
	}
	return strings.Join(msgs, ", ")
}
