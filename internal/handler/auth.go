package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"idcards/internal/auth"
)

func (h *Handler) login(c *gin.Context) {
	var req auth.LoginRequest
	if !h.bindJSON(c, &req) {
		return
	}
	sess, err := h.Auth.Login(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, sess)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
	DeviceID     string `json:"device_id"`
}

func (h *Handler) refresh(c *gin.Context) {
	var req refreshRequest
	if !h.bindJSON(c, &req) {
		return
	}
	tokens, err := h.Auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, tokens)
}

func (h *Handler) logout(c *gin.Context) {
	var req refreshRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.Auth.Logout(c.Request.Context(), req.RefreshToken, req.DeviceID); err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, nil)
}

func (h *Handler) remembered(c *gin.Context) {
	name, err := h.Auth.Remembered(c.Request.Context(), c.Query("device_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"username": name})
}

type createTeacherRequest struct {
	Username string `json:"username" binding:"required,max=64"`
	Password string `json:"password" binding:"required,min=8"`
}

func (h *Handler) createTeacher(c *gin.Context) {
	schoolID := c.Param("schoolId")
	var req createTeacherRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if _, err := h.Roster.GetSchool(c.Request.Context(), schoolID); err != nil {
		h.fail(c, err)
		return
	}
	acct, err := h.Auth.CreateTeacher(c.Request.Context(), schoolID, req.Username, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, acct)
}
