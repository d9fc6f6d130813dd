package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/filevault/vault-api/internal/api/middleware"
	"github.com/filevault/vault-api/internal/core/domain"
	"github.com/filevault/vault-api/internal/core/ports"
)

type stubVaultService struct {
	uploadFn         func(ctx context.Context, caller ports.Identity, in ports.UploadInput) (*ports.UploadResult, error)
	listFn           func(ctx context.Context, caller ports.Identity) ([]string, error)
	searchFn         func(ctx context.Context, caller ports.Identity, keyword string) ([]ports.FileDescriptor, error)
	downloadFn       func(ctx context.Context, caller ports.Identity, filename string) (*ports.DownloadResult, error)
	deleteFn         func(ctx context.Context, caller ports.Identity, filename string, confirm, hard bool) (*ports.DeleteResult, error)
	deleteAllFn      func(ctx context.Context, caller ports.Identity, confirm, hard bool) (int, error)
	adminDeleteFn    func(ctx context.Context, targetUsername, filename string, confirm, hard bool) (*ports.DeleteResult, error)
	adminDeleteAllFn func(ctx context.Context, targetUsername string, confirm, hard bool) (int, error)
	adminListAllFn   func(ctx context.Context) ([]ports.FileDescriptor, error)
}

func (s *stubVaultService) Upload(ctx context.Context, caller ports.Identity, in ports.UploadInput) (*ports.UploadResult, error) {
	return s.uploadFn(ctx, caller, in)
}

func (s *stubVaultService) List(ctx context.Context, caller ports.Identity) ([]string, error) {
	return s.listFn(ctx, caller)
}

func (s *stubVaultService) Search(ctx context.Context, caller ports.Identity, keyword string) ([]ports.FileDescriptor, error) {
	return s.searchFn(ctx, caller, keyword)
}

func (s *stubVaultService) Download(ctx context.Context, caller ports.Identity, filename string) (*ports.DownloadResult, error) {
	return s.downloadFn(ctx, caller, filename)
}

func (s *stubVaultService) Delete(ctx context.Context, caller ports.Identity, filename string, confirm, hard bool) (*ports.DeleteResult, error) {
	return s.deleteFn(ctx, caller, filename, confirm, hard)
}

func (s *stubVaultService) DeleteAll(ctx context.Context, caller ports.Identity, confirm, hard bool) (int, error) {
	return s.deleteAllFn(ctx, caller, confirm, hard)
}

func (s *stubVaultService) AdminDelete(ctx context.Context, targetUsername, filename string, confirm, hard bool) (*ports.DeleteResult, error) {
	return s.adminDeleteFn(ctx, targetUsername, filename, confirm, hard)
}

func (s *stubVaultService) AdminDeleteAll(ctx context.Context, targetUsername string, confirm, hard bool) (int, error) {
	return s.adminDeleteAllFn(ctx, targetUsername, confirm, hard)
}

func (s *stubVaultService) AdminListAll(ctx context.Context) ([]ports.FileDescriptor, error) {
	return s.adminListAllFn(ctx)
}

// authenticate injects the claims the identity middleware would have set.
func authenticate(c echo.Context, userID, username, role string) {
	c.Set(middleware.CtxUserID, userID)
	c.Set(middleware.CtxUsername, username)
	c.Set(middleware.CtxRole, role)
}

func newVaultContext(t *testing.T, method, target string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, target, body)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// multipartUpload builds a multipart body with one "file" part.
func multipartUpload(t *testing.T, filename, content string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func TestVaultHandler_Upload_Success(t *testing.T) {
	stub := &stubVaultService{
		uploadFn: func(ctx context.Context, caller ports.Identity, in ports.UploadInput) (*ports.UploadResult, error) {
			if caller.Username != "alice" {
				t.Fatalf("unexpected caller: %+v", caller)
			}
			if in.Filename != "report.pdf" || in.Size != 5 || in.Overwrite {
				t.Fatalf("unexpected input: %+v", in)
			}
			data, _ := io.ReadAll(in.Content)
			if string(data) != "hello" {
				t.Fatalf("unexpected content: %q", data)
			}
			return &ports.UploadResult{Filename: "report.pdf", SizeBytes: 5, UploadedAt: time.Now()}, nil
		},
	}
	h := NewVaultHandler(stub)

	body, contentType := multipartUpload(t, "report.pdf", "hello")
	c, rec := newVaultContext(t, http.MethodPost, "/api/v1/files", body)
	c.Request().Header.Set(echo.HeaderContentType, contentType)
	authenticate(c, "u1", "alice", domain.RoleUser)

	if err := h.Upload(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["filename"] != "report.pdf" || resp["replaced"] != false {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestVaultHandler_Upload_OverwriteFlag(t *testing.T) {
	stub := &stubVaultService{
		uploadFn: func(ctx context.Context, caller ports.Identity, in ports.UploadInput) (*ports.UploadResult, error) {
			if !in.Overwrite {
				t.Fatalf("expected overwrite to be set")
			}
			return &ports.UploadResult{Filename: in.Filename, SizeBytes: in.Size, Replaced: true}, nil
		},
	}
	h := NewVaultHandler(stub)

	body, contentType := multipartUpload(t, "report.pdf", "hello")
	c, rec := newVaultContext(t, http.MethodPost, "/api/v1/files?overwrite=true", body)
	c.Request().Header.Set(echo.HeaderContentType, contentType)
	authenticate(c, "u1", "alice", domain.RoleUser)

	if err := h.Upload(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["replaced"] != true {
		t.Fatalf("expected replaced=true, got %+v", resp)
	}
}

func TestVaultHandler_Upload_MissingFile(t *testing.T) {
	stub := &stubVaultService{
		uploadFn: func(ctx context.Context, caller ports.Identity, in ports.UploadInput) (*ports.UploadResult, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	h := NewVaultHandler(stub)

	c, _ := newVaultContext(t, http.MethodPost, "/api/v1/files", strings.NewReader(""))
	authenticate(c, "u1", "alice", domain.RoleUser)

	err := h.Upload(c)
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestVaultHandler_Upload_EmptyFile(t *testing.T) {
	stub := &stubVaultService{
		uploadFn: func(ctx context.Context, caller ports.Identity, in ports.UploadInput) (*ports.UploadResult, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	h := NewVaultHandler(stub)

	body, contentType := multipartUpload(t, "empty.txt", "")
	c, _ := newVaultContext(t, http.MethodPost, "/api/v1/files", body)
	c.Request().Header.Set(echo.HeaderContentType, contentType)
	authenticate(c, "u1", "alice", domain.RoleUser)

	err := h.Upload(c)
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestVaultHandler_Upload_Unauthenticated(t *testing.T) {
	stub := &stubVaultService{
		uploadFn: func(ctx context.Context, caller ports.Identity, in ports.UploadInput) (*ports.UploadResult, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	h := NewVaultHandler(stub)

	body, contentType := multipartUpload(t, "report.pdf", "hello")
	c, _ := newVaultContext(t, http.MethodPost, "/api/v1/files", body)
	c.Request().Header.Set(echo.HeaderContentType, contentType)

	err := h.Upload(c)
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestVaultHandler_Upload_NameConflict(t *testing.T) {
	stub := &stubVaultService{
		uploadFn: func(ctx context.Context, caller ports.Identity, in ports.UploadInput) (*ports.UploadResult, error) {
			return nil, domain.ErrNameConflict
		},
	}
	h := NewVaultHandler(stub)

	body, contentType := multipartUpload(t, "report.pdf", "hello")
	c, _ := newVaultContext(t, http.MethodPost, "/api/v1/files", body)
	c.Request().Header.Set(echo.HeaderContentType, contentType)
	authenticate(c, "u1", "alice", domain.RoleUser)

	if err := h.Upload(c); !errors.Is(err, domain.ErrNameConflict) {
		t.Fatalf("expected ErrNameConflict, got %v", err)
	}
}

func TestVaultHandler_List_Success(t *testing.T) {
	stub := &stubVaultService{
		listFn: func(ctx context.Context, caller ports.Identity) ([]string, error) {
			return []string{"a.txt", "b.txt"}, nil
		},
	}
	h := NewVaultHandler(stub)

	c, rec := newVaultContext(t, http.MethodGet, "/api/v1/files", nil)
	authenticate(c, "u1", "alice", domain.RoleUser)

	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Files []string `json:"files"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Files) != 2 || resp.Files[0] != "a.txt" {
		t.Fatalf("unexpected files: %v", resp.Files)
	}
}

func TestVaultHandler_Search_RequiresKeyword(t *testing.T) {
	stub := &stubVaultService{
		searchFn: func(ctx context.Context, caller ports.Identity, keyword string) ([]ports.FileDescriptor, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	h := NewVaultHandler(stub)

	c, _ := newVaultContext(t, http.MethodGet, "/api/v1/files/search", nil)
	authenticate(c, "u1", "alice", domain.RoleUser)

	err := h.Search(c)
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestVaultHandler_Search_Success(t *testing.T) {
	stub := &stubVaultService{
		searchFn: func(ctx context.Context, caller ports.Identity, keyword string) ([]ports.FileDescriptor, error) {
			if keyword != "rep" {
				t.Fatalf("unexpected keyword: %q", keyword)
			}
			return []ports.FileDescriptor{
				{Filename: "report.pdf", SizeBytes: 5, UploadedAt: time.Now()},
			}, nil
		},
	}
	h := NewVaultHandler(stub)

	c, rec := newVaultContext(t, http.MethodGet, "/api/v1/files/search?keyword=rep", nil)
	authenticate(c, "u1", "alice", domain.RoleUser)

	if err := h.Search(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp struct {
		Results []map[string]any `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0]["filename"] != "report.pdf" {
		t.Fatalf("unexpected results: %+v", resp.Results)
	}
	// Owner is omitted for non-admin callers.
	if _, ok := resp.Results[0]["owner"]; ok {
		t.Fatalf("owner must be omitted for plain users: %+v", resp.Results[0])
	}
}

func TestVaultHandler_Download_Success(t *testing.T) {
	stub := &stubVaultService{
		downloadFn: func(ctx context.Context, caller ports.Identity, filename string) (*ports.DownloadResult, error) {
			if filename != "report.pdf" {
				t.Fatalf("unexpected filename: %q", filename)
			}
			return &ports.DownloadResult{
				Filename:    "report.pdf",
				Content:     io.NopCloser(strings.NewReader("hello")),
				SizeBytes:   5,
				ContentType: "application/pdf",
			}, nil
		},
	}
	h := NewVaultHandler(stub)

	c, rec := newVaultContext(t, http.MethodGet, "/api/v1/files/report.pdf", nil)
	c.SetParamNames("filename")
	c.SetParamValues("report.pdf")
	authenticate(c, "u1", "alice", domain.RoleUser)

	if err := h.Download(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "hello" {
		t.Fatalf("unexpected body: %q", rec.Body.String())
	}
	if cd := rec.Header().Get(echo.HeaderContentDisposition); cd != `attachment; filename="report.pdf"` {
		t.Fatalf("unexpected content disposition: %q", cd)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != "application/pdf" {
		t.Fatalf("unexpected content type: %q", ct)
	}
}

func TestVaultHandler_Download_DefaultsContentType(t *testing.T) {
	stub := &stubVaultService{
		downloadFn: func(ctx context.Context, caller ports.Identity, filename string) (*ports.DownloadResult, error) {
			return &ports.DownloadResult{
				Filename: "blob.bin",
				Content:  io.NopCloser(strings.NewReader("x")),
			}, nil
		},
	}
	h := NewVaultHandler(stub)

	c, rec := newVaultContext(t, http.MethodGet, "/api/v1/files/blob.bin", nil)
	c.SetParamNames("filename")
	c.SetParamValues("blob.bin")
	authenticate(c, "u1", "alice", domain.RoleUser)

	if err := h.Download(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != echo.MIMEOctetStream {
		t.Fatalf("expected octet-stream fallback, got %q", ct)
	}
}

func TestVaultHandler_Download_NotFound(t *testing.T) {
	stub := &stubVaultService{
		downloadFn: func(ctx context.Context, caller ports.Identity, filename string) (*ports.DownloadResult, error) {
			return nil, domain.ErrFileNotFound
		},
	}
	h := NewVaultHandler(stub)

	c, _ := newVaultContext(t, http.MethodGet, "/api/v1/files/ghost.txt", nil)
	c.SetParamNames("filename")
	c.SetParamValues("ghost.txt")
	authenticate(c, "u1", "alice", domain.RoleUser)

	if err := h.Download(c); !errors.Is(err, domain.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
}

func TestVaultHandler_Delete_Success(t *testing.T) {
	stub := &stubVaultService{
		deleteFn: func(ctx context.Context, caller ports.Identity, filename string, confirm, hard bool) (*ports.DeleteResult, error) {
			if filename != "report.pdf" || !confirm || !hard {
				t.Fatalf("unexpected args: %s %v %v", filename, confirm, hard)
			}
			return &ports.DeleteResult{Filename: filename, Hard: hard}, nil
		},
	}
	h := NewVaultHandler(stub)

	c, rec := newVaultContext(t, http.MethodDelete, "/api/v1/files/report.pdf?confirm=true&hard=true", nil)
	c.SetParamNames("filename")
	c.SetParamValues("report.pdf")
	authenticate(c, "u1", "alice", domain.RoleUser)

	if err := h.Delete(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["filename"] != "report.pdf" || resp["hard"] != true {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestVaultHandler_Delete_ConfirmationRequired(t *testing.T) {
	stub := &stubVaultService{
		deleteFn: func(ctx context.Context, caller ports.Identity, filename string, confirm, hard bool) (*ports.DeleteResult, error) {
			if confirm {
				t.Fatalf("confirm must be false without the query parameter")
			}
			return nil, domain.ErrConfirmationRequired
		},
	}
	h := NewVaultHandler(stub)

	c, _ := newVaultContext(t, http.MethodDelete, "/api/v1/files/report.pdf", nil)
	c.SetParamNames("filename")
	c.SetParamValues("report.pdf")
	authenticate(c, "u1", "alice", domain.RoleUser)

	if err := h.Delete(c); !errors.Is(err, domain.ErrConfirmationRequired) {
		t.Fatalf("expected ErrConfirmationRequired, got %v", err)
	}
}

func TestVaultHandler_DeleteAll_Success(t *testing.T) {
	stub := &stubVaultService{
		deleteAllFn: func(ctx context.Context, caller ports.Identity, confirm, hard bool) (int, error) {
			if !confirm || hard {
				t.Fatalf("unexpected args: %v %v", confirm, hard)
			}
			return 3, nil
		},
	}
	h := NewVaultHandler(stub)

	c, rec := newVaultContext(t, http.MethodDelete, "/api/v1/files?confirm=true", nil)
	authenticate(c, "u1", "alice", domain.RoleUser)

	if err := h.DeleteAll(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp struct {
		Deleted int `json:"deleted"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Deleted != 3 {
		t.Fatalf("expected 3 deleted, got %d", resp.Deleted)
	}
}

func TestVaultHandler_AdminDelete_Success(t *testing.T) {
	stub := &stubVaultService{
		adminDeleteFn: func(ctx context.Context, targetUsername, filename string, confirm, hard bool) (*ports.DeleteResult, error) {
			if targetUsername != "bob" || filename != "notes.txt" || !confirm {
				t.Fatalf("unexpected args: %s %s %v", targetUsername, filename, confirm)
			}
			return &ports.DeleteResult{Filename: filename, Hard: hard}, nil
		},
	}
	h := NewVaultHandler(stub)

	c, rec := newVaultContext(t, http.MethodDelete, "/api/v1/admin/files/bob/notes.txt?confirm=true", nil)
	c.SetParamNames("username", "filename")
	c.SetParamValues("bob", "notes.txt")
	authenticate(c, "admin1", "root", domain.RoleAdmin)

	if err := h.AdminDelete(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestVaultHandler_AdminDeleteAll_UnknownUser(t *testing.T) {
	stub := &stubVaultService{
		adminDeleteAllFn: func(ctx context.Context, targetUsername string, confirm, hard bool) (int, error) {
			return 0, domain.ErrFileNotFound
		},
	}
	h := NewVaultHandler(stub)

	c, _ := newVaultContext(t, http.MethodDelete, "/api/v1/admin/files/ghost?confirm=true", nil)
	c.SetParamNames("username")
	c.SetParamValues("ghost")
	authenticate(c, "admin1", "root", domain.RoleAdmin)

	if err := h.AdminDeleteAll(c); !errors.Is(err, domain.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
}

func TestVaultHandler_AdminListAll_IncludesOwner(t *testing.T) {
	stub := &stubVaultService{
		adminListAllFn: func(ctx context.Context) ([]ports.FileDescriptor, error) {
			return []ports.FileDescriptor{
				{Filename: "a.txt", Owner: "alice", SizeBytes: 1, UploadedAt: time.Now()},
				{Filename: "b.txt", Owner: "bob", SizeBytes: 2, UploadedAt: time.Now()},
			}, nil
		},
	}
	h := NewVaultHandler(stub)

	c, rec := newVaultContext(t, http.MethodGet, "/api/v1/admin/files", nil)
	authenticate(c, "admin1", "root", domain.RoleAdmin)

	if err := h.AdminListAll(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp struct {
		Results []map[string]any `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Results))
	}
	if resp.Results[0]["owner"] != "alice" || resp.Results[1]["owner"] != "bob" {
		t.Fatalf("expected owners in admin listing: %+v", resp.Results)
	}
}
