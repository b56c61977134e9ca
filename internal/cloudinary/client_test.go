package cloudinary

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testClient(srv *httptest.Server) *Client {
	c := New("demo", "key", "secret", "idcards")
	c.BaseURL = srv.URL
	c.now = func() time.Time { return time.Unix(1700000000, 0) }
	return c
}

func TestSignMatchesCloudinaryScheme(t *testing.T) {
	c := New("demo", "key", "secret", "")
	got := c.sign(map[string]string{
		"timestamp": "1700000000",
		"public_id": "students/abc",
		"api_key":   "key",
		"file":      "ignored",
	})
	want := fmt.Sprintf("%x", sha1.Sum([]byte("public_id=students/abc&timestamp=1700000000secret")))
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestUploadSendsSignedMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/demo/image/upload" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.FormValue("public_id") != "students/s1_1" || r.FormValue("folder") != "idcards" {
			t.Errorf("unexpected fields: %v", r.MultipartForm.Value)
		}
		if r.FormValue("signature") == "" || r.FormValue("api_key") != "key" {
			t.Errorf("expected signed request")
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("file missing: %v", err)
		} else {
			data, _ := io.ReadAll(f)
			if string(data) != "jpegbytes" {
				t.Errorf("unexpected file body %q", data)
			}
		}
		fmt.Fprint(w, `{"public_id":"idcards/students/s1_1","secure_url":"https://res.example/x.jpg","width":10,"height":10}`)
	}))
	defer srv.Close()

	res, err := testClient(srv).Upload(context.Background(), "students/s1_1", []byte("jpegbytes"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if res.SecureURL != "https://res.example/x.jpg" || res.PublicID != "idcards/students/s1_1" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestUploadSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"Invalid Signature"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	if _, err := testClient(srv).Upload(context.Background(), "k", []byte("x")); err == nil {
		t.Fatalf("expected error on 401")
	}
	if _, err := testClient(srv).Upload(context.Background(), "k", nil); err == nil {
		t.Fatalf("expected error on empty payload")
	}
}

func TestDestroyResults(t *testing.T) {
	result := "ok"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/demo/image/destroy" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprintf(w, `{"result":%q}`, result)
	}))
	defer srv.Close()

	c := testClient(srv)
	if err := c.Destroy(context.Background(), "idcards/students/a"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	result = "not found"
	if err := c.Destroy(context.Background(), "idcards/students/a"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
