package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"idcards/internal/photos"
)

func (h *Handler) uploadPhoto(c *gin.Context) {
	claims := claimsOf(c)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(c, photos.ErrFileTooLarge)
			return
		}
		h.fail(c, errMissingFile)
		return
	}
	if fh.Size > int64(h.Photos.MaxBytes()) {
		h.fail(c, photos.ErrFileTooLarge)
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, int64(h.Photos.MaxBytes())+1))
	if err != nil {
		h.fail(c, err)
		return
	}

	scope, allowed := h.lookupScope(c, c.PostForm("schoolId"))
	if !allowed {
		return
	}
	studentID := c.Param("studentId")
	if studentID == "" {
		studentID = c.PostForm("studentId")
	}
	res, err := h.Photos.Upload(c.Request.Context(), photos.UploadRequest{
		SchoolID:  scope,
		PhotoID:   strings.TrimSpace(c.PostForm("photoId")),
		StudentID: strings.TrimSpace(studentID),
		Uploader:  claims.Subject,
		Image:     data,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response{Success: true, PhotoURL: res.PhotoURL, Message: "photo uploaded", Data: res.Student})
}

func (h *Handler) resetStudentPhoto(c *gin.Context) {
	scope, allowed := h.lookupScope(c, c.Query("schoolId"))
	if !allowed {
		return
	}
	res, err := h.Photos.ResetStudentPhoto(c.Request.Context(), scope, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

func (h *Handler) resetSchoolPhotos(c *gin.Context) {
	schoolID := c.Param("schoolId")
	if _, err := h.Roster.GetSchool(c.Request.Context(), schoolID); err != nil {
		h.fail(c, err)
		return
	}
	res, err := h.Photos.ResetSchoolPhotos(c.Request.Context(), schoolID)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}
