package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"idcards/internal/crop"
)

// DefaultTimeout bounds one upload from first byte to response.
const DefaultTimeout = 3 * time.Minute

var (
	// ErrUploadTimeout means the upload ran out of time; retrying may help.
	ErrUploadTimeout = errors.New("upload timed out")
	// ErrNetwork means the server could not be reached or the connection broke.
	ErrNetwork = errors.New("network error")
)

// ServerError is a rejection reported by the photo service.
type ServerError struct {
	Status  int
	Message string
	Code    string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server rejected upload (%d)", e.Status)
	}
	return fmt.Sprintf("server rejected upload (%d): %s", e.Status, e.Message)
}

// Request is one finished image and the identifiers that route it.
type Request struct {
	Image     []byte
	PhotoID   string
	StudentID string
	Filename  string
}

// Result is a successful upload.
type Result struct {
	PhotoURL string
}

// Client sends photos to the service.
type Client struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	HTTP    *http.Client
}

// New creates a dispatcher for the service at baseURL. token may be empty.
func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Timeout: DefaultTimeout,
		HTTP:    &http.Client{},
	}
}

type envelope struct {
	Success  bool   `json:"success"`
	PhotoURL string `json:"photoUrl"`
	Message  string `json:"message"`
	Code     string `json:"code"`
}

// Dispatch uploads req and returns exactly one terminal outcome. progress, if
// set, receives percentages in [0,100] that never decrease; 100 is reported
// once the whole body has been written.
func (c *Client) Dispatch(ctx context.Context, req Request, progress func(int)) (Result, error) {
	if len(req.Image) == 0 {
		return Result{}, crop.ErrEncodingFailed
	}
	body, contentType, err := encode(req)
	if err != nil {
		return Result{}, err
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	uploadCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pr := &progressReader{r: bytes.NewReader(body), total: int64(len(body)), report: progress}
	httpReq, err := http.NewRequestWithContext(uploadCtx, http.MethodPost, c.BaseURL+"/v1/photos", pr)
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.ContentLength = int64(len(body))
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	if c.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.Token)
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	pr.emit(0)
	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return Result{}, classify(ctx, uploadCtx, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, classify(ctx, uploadCtx, err)
	}
	var env envelope
	if jerr := json.Unmarshal(raw, &env); jerr != nil {
		env.Message = strings.TrimSpace(string(raw))
	}
	if resp.StatusCode >= 300 || !env.Success {
		return Result{}, &ServerError{Status: resp.StatusCode, Message: env.Message, Code: env.Code}
	}
	pr.emit(100)
	return Result{PhotoURL: env.PhotoURL}, nil
}

func encode(req Request) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if req.PhotoID != "" {
		_ = w.WriteField("photoId", req.PhotoID)
	}
	if req.StudentID != "" {
		_ = w.WriteField("studentId", req.StudentID)
	}
	name := req.Filename
	if name == "" {
		name = "photo.jpg"
	}
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(req.Image); err != nil {
		return nil, "", fmt.Errorf("write form file: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// classify separates our own deadline from caller cancellation and transport failures.
func classify(parent, upload context.Context, err error) error {
	switch {
	case parent.Err() != nil:
		return parent.Err()
	case errors.Is(upload.Err(), context.DeadlineExceeded), isTimeout(err):
		return ErrUploadTimeout
	default:
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

type progressReader struct {
	r     io.Reader
	total int64

	mu      sync.Mutex
	sent    int64
	last    int
	started bool
	report  func(int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.mu.Lock()
	p.sent += int64(n)
	sent := p.sent
	p.mu.Unlock()
	if p.total > 0 {
		p.emit(int(sent * 100 / p.total))
	}
	return n, err
}

func (p *progressReader) emit(pct int) {
	if p.report == nil {
		return
	}
	if pct > 100 {
		pct = 100
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started && pct <= p.last {
		return
	}
	p.started = true
	p.last = pct
	p.report(pct)
}
