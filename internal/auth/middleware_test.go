package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"idcards/internal/roster"
)

func init() { gin.SetMode(gin.TestMode) }

func TestBearerAndRole(t *testing.T) {
	r := gin.New()
	r.GET("/admin", Bearer("k", "iss"), RequireRole(roster.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	teacher, _ := Issue(Identity{AccountID: "t1", Role: roster.RoleTeacher, SchoolID: "s1"}, "iss", "k", time.Minute, time.Hour)
	admin, _ := Issue(Identity{AccountID: "a1", Role: roster.RoleAdmin}, "iss", "k", time.Minute, time.Hour)

	cases := []struct {
		name  string
		token string
		want  int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"refresh token", admin.RefreshToken, http.StatusUnauthorized},
		{"wrong role", teacher.AccessToken, http.StatusForbidden},
		{"admin", admin.AccessToken, http.StatusNoContent},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if tc.token != "" {
			req.Header.Set("Authorization", "Bearer "+tc.token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, w.Code)
		}
	}
}

func TestCanAccessSchool(t *testing.T) {
	if !CanAccessSchool(Claims{Role: roster.RoleAdmin}, "any") {
		t.Fatalf("expected admin to reach any school")
	}
	if CanAccessSchool(Claims{Role: roster.RoleTeacher, SchoolID: "a"}, "b") {
		t.Fatalf("expected teacher confined to own school")
	}
	if CanAccessSchool(Claims{Role: roster.RoleTeacher}, "") {
		t.Fatalf("expected teacher without school rejected")
	}
}
