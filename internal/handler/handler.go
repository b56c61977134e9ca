// Package handler exposes the roster, photo and account operations over HTTP.
package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"idcards/internal/auth"
	"idcards/internal/httpmiddleware"
	"idcards/internal/metrics"
	"idcards/internal/photos"
	"idcards/internal/roster"
)

var (
	errForbidden   = errors.New("forbidden")
	errMissingFile = errors.New("file is required")
)

// Deps are the services behind the handlers.
type Deps struct {
	Roster   *roster.Repository
	Importer *roster.Importer
	Photos   *photos.Service
	Auth     *auth.Service
	Metrics  *metrics.Metrics
	Log      *zap.Logger

	SigningKey string
	Issuer     string
	// UploadLimit throttles photo uploads; nil disables it.
	UploadLimit gin.HandlerFunc
}

type Handler struct {
	Deps
}

func New(d Deps) *Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &Handler{Deps: d}
}

// Register mounts every route under /v1.
func (h *Handler) Register(r gin.IRouter) {
	v1 := r.Group("/v1")

	authGroup := v1.Group("/auth")
	authGroup.POST("/login", h.login)
	authGroup.POST("/refresh", h.refresh)
	authGroup.POST("/logout", h.logout)
	authGroup.GET("/remembered", h.remembered)

	api := v1.Group("", auth.Bearer(h.SigningKey, h.Issuer))

	photosGroup := api.Group("/photos")
	if h.UploadLimit != nil {
		photosGroup.Use(h.UploadLimit)
	}
	photosGroup.Use(httpmiddleware.BodyLimit(int64(h.Photos.MaxBytes())))
	photosGroup.POST("", h.uploadPhoto)
	photosGroup.POST("/:studentId", h.uploadPhoto)

	api.GET("/students/:id", h.getStudent)
	api.DELETE("/students/:id/photo", h.resetStudentPhoto)

	api.GET("/schools/:schoolId", h.getSchool)
	api.GET("/schools/:schoolId/students", h.listStudents)
	api.GET("/schools/:schoolId/classes", h.listClasses)

	admin := api.Group("", auth.RequireRole(roster.RoleAdmin))
	admin.POST("/schools", h.createSchool)
	admin.GET("/schools", h.listSchools)
	admin.DELETE("/schools/:schoolId", h.deleteSchool)
	admin.POST("/schools/:schoolId/import", h.importRoster)
	admin.POST("/schools/:schoolId/teachers", h.createTeacher)
	admin.DELETE("/schools/:schoolId/photos", h.resetSchoolPhotos)
	admin.DELETE("/schools/:schoolId/students", h.purgeStudents)
}

type response struct {
	Success  bool   `json:"success"`
	PhotoURL string `json:"photoUrl,omitempty"`
	Message  string `json:"message,omitempty"`
	Code     string `json:"code,omitempty"`
	Data     any    `json:"data,omitempty"`
}

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, response{Success: true, Data: data})
}

func (h *Handler) fail(c *gin.Context, err error) {
	status, code, msg := classify(err)
	if status >= http.StatusInternalServerError {
		h.Log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, response{Success: false, Message: msg, Code: code})
}

// classify maps domain errors onto status, machine code and user message.
func classify(err error) (int, string, string) {
	var ambiguous *photos.AmbiguousError
	var notFound *photos.NotFoundError
	var invalid validator.ValidationErrors
	switch {
	case errors.As(err, &ambiguous):
		return http.StatusConflict, "ambiguous_student", err.Error()
	case errors.As(err, &notFound):
		return http.StatusNotFound, "student_not_found", err.Error()
	case errors.Is(err, photos.ErrMediaStore):
		return http.StatusBadGateway, "media_store_failure", "photo storage is unavailable, try again"
	case errors.Is(err, photos.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "file_too_large", err.Error()
	case errors.Is(err, photos.ErrEmptyImage):
		return http.StatusBadRequest, "empty_file", err.Error()
	case errors.Is(err, errMissingFile):
		return http.StatusBadRequest, "missing_file", err.Error()
	case errors.Is(err, photos.ErrMissingID):
		return http.StatusBadRequest, "missing_identifier", err.Error()
	case errors.Is(err, photos.ErrSchoolRequired):
		return http.StatusBadRequest, "school_required", err.Error()
	case errors.Is(err, roster.ErrInvalidWorkbook):
		return http.StatusBadRequest, "invalid_spreadsheet", err.Error()
	case errors.Is(err, roster.ErrSchoolNotFound):
		return http.StatusNotFound, "school_not_found", err.Error()
	case errors.Is(err, roster.ErrStudentNotFound):
		return http.StatusNotFound, "student_not_found", err.Error()
	case errors.Is(err, roster.ErrDuplicate):
		return http.StatusConflict, "duplicate", err.Error()
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials", err.Error()
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid_token", err.Error()
	case errors.Is(err, errForbidden):
		return http.StatusForbidden, "forbidden", err.Error()
	case errors.As(err, &invalid):
		return http.StatusBadRequest, "validation_failed", fieldErrors(invalid)
	default:
		return http.StatusInternalServerError, "internal_error", "internal error"
	}
}

func fieldErrors(errs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "min", "max":
			msgs = append(msgs, fmt.Sprintf("%s must be %s %s", fe.Field(), fe.Tag(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return strings.Join(msgs, "; ")
}

// bindJSON decodes the body; malformed JSON is reported as a 400.
func (h *Handler) bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) {
			h.fail(c, err)
			return false
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, response{Message: "malformed request body", Code: "bad_request"})
		return false
	}
	return true
}

func claimsOf(c *gin.Context) auth.Claims {
	claims, _ := auth.ClaimsFrom(c)
	return claims
}

// schoolAccess checks the :schoolId path parameter against the caller.
func (h *Handler) schoolAccess(c *gin.Context) (string, bool) {
	schoolID := c.Param("schoolId")
	if !auth.CanAccessSchool(claimsOf(c), schoolID) {
		h.fail(c, errForbidden)
		return "", false
	}
	return schoolID, true
}

// lookupScope is the school a caller's lookups are confined to. Admins may
// name one explicitly and otherwise search every school.
func (h *Handler) lookupScope(c *gin.Context, requested string) (string, bool) {
	claims := claimsOf(c)
	if claims.Role == roster.RoleAdmin {
		return strings.TrimSpace(requested), true
	}
	if claims.SchoolID == "" {
		h.fail(c, errForbidden)
		return "", false
	}
	return claims.SchoolID, true
}
