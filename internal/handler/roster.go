package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"idcards/internal/roster"
)

type createSchoolRequest struct {
	Name    string `json:"name" binding:"required,max=200"`
	Code    string `json:"code" binding:"required,max=32"`
	Address string `json:"address"`
}

func (h *Handler) createSchool(c *gin.Context) {
	var req createSchoolRequest
	if !h.bindJSON(c, &req) {
		return
	}
	school, err := h.Roster.CreateSchool(c.Request.Context(), roster.School{
		Name:    strings.TrimSpace(req.Name),
		Code:    strings.ToUpper(strings.TrimSpace(req.Code)),
		Address: req.Address,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, school)
}

func (h *Handler) listSchools(c *gin.Context) {
	schools, err := h.Roster.ListSchools(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, schools)
}

func (h *Handler) getSchool(c *gin.Context) {
	schoolID, allowed := h.schoolAccess(c)
	if !allowed {
		return
	}
	school, err := h.Roster.GetSchool(c.Request.Context(), schoolID)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, school)
}

// deleteSchool removes the school with its students and teachers; their
// photos are handed to the cleanup worker.
func (h *Handler) deleteSchool(c *gin.Context) {
	schoolID := c.Param("schoolId")
	keys, err := h.Roster.DeleteSchool(c.Request.Context(), schoolID)
	if err != nil {
		h.fail(c, err)
		return
	}
	queued := h.Photos.Discard(c.Request.Context(), keys...)
	h.Log.Info("school deleted", zap.String("school_id", schoolID), zap.Int("photos_queued", queued))
	ok(c, http.StatusOK, gin.H{"deleted": schoolID, "queued": queued})
}

func (h *Handler) listStudents(c *gin.Context) {
	schoolID, allowed := h.schoolAccess(c)
	if !allowed {
		return
	}
	students, err := h.Roster.ListStudents(c.Request.Context(), schoolID, c.Query("class"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, students)
}

func (h *Handler) listClasses(c *gin.Context) {
	schoolID, allowed := h.schoolAccess(c)
	if !allowed {
		return
	}
	classes, err := h.Roster.ListClasses(c.Request.Context(), schoolID)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, classes)
}

func (h *Handler) getStudent(c *gin.Context) {
	scope, allowed := h.lookupScope(c, c.Query("schoolId"))
	if !allowed {
		return
	}
	st, err := h.Roster.GetStudent(c.Request.Context(), scope, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, st)
}

func (h *Handler) importRoster(c *gin.Context) {
	schoolID := c.Param("schoolId")
	if _, err := h.Roster.GetSchool(c.Request.Context(), schoolID); err != nil {
		h.fail(c, err)
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		h.fail(c, errMissingFile)
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer f.Close()

	report, err := h.Importer.Import(c.Request.Context(), schoolID, f)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.Metrics.ImportRows(report.Created, report.Skipped)
	ok(c, http.StatusOK, report)
}

func (h *Handler) purgeStudents(c *gin.Context) {
	schoolID := c.Param("schoolId")
	keys, n, err := h.Roster.PurgeStudents(c.Request.Context(), schoolID)
	if err != nil {
		h.fail(c, err)
		return
	}
	queued := h.Photos.Discard(c.Request.Context(), keys...)
	ok(c, http.StatusOK, gin.H{"deleted": n, "queued": queued})
}
