package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/subburn/backend/internal/auth"
	"github.com/subburn/backend/internal/db"
	"github.com/subburn/backend/internal/job"
	"github.com/subburn/backend/internal/storage"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func newTestDB(t *testing.T) *db.Database {
	t.Helper()
	database, err := db.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	fw.Write([]byte(content))
	mw.Close()
	return &buf, mw.FormDataContentType()
}

const sampleSRT = "1\n00:00:01,000 --> 00:00:03,500\nHello world\n\n"

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	Health(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestUploadSubtitle(t *testing.T) {
	h := NewUploadHandler(newTestStore(t))

	body, contentType := multipartBody(t, "file", "track.srt", sampleSRT)
	req := httptest.NewRequest(http.MethodPost, "/api/uploads", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.Upload(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		ID       string `json:"id"`
		Kind     string `json:"kind"`
		Subtitle *struct {
			Format  string `json:"format"`
			Entries int    `json:"entries"`
		} `json:"subtitle"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID == "" || resp.Kind != "subtitle" {
		t.Errorf("response = %+v", resp)
	}
	if resp.Subtitle == nil || resp.Subtitle.Entries != 1 || resp.Subtitle.Format != "srt" {
		t.Errorf("subtitle summary = %+v", resp.Subtitle)
	}
}

func TestUploadRejectsUnknownType(t *testing.T) {
	h := NewUploadHandler(newTestStore(t))

	body, contentType := multipartBody(t, "file", "notes.txt", "hello")
	req := httptest.NewRequest(http.MethodPost, "/api/uploads", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.Upload(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestUploadRejectsUnparsableSubtitle(t *testing.T) {
	h := NewUploadHandler(newTestStore(t))

	body, contentType := multipartBody(t, "file", "broken.srt", "no cues here")
	req := httptest.NewRequest(http.MethodPost, "/api/uploads", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.Upload(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestEnqueueUnknownUpload(t *testing.T) {
	store := newTestStore(t)
	queue := job.NewQueue(newTestDB(t).DB())
	t.Cleanup(queue.Stop)
	h := NewJobHandler(queue, store)

	payload := `{"video_id":"nope","video_name":"a.mp4","subtitle_id":"nope","subtitle_name":"a.srt","quality":"fast"}`
	req := httptest.NewRequest(http.MethodPost, "/api/burn", strings.NewReader(payload))
	rec := httptest.NewRecorder()

	h.Enqueue(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestEnqueueRejectsBadQuality(t *testing.T) {
	store := newTestStore(t)
	queue := job.NewQueue(newTestDB(t).DB())
	t.Cleanup(queue.Stop)
	h := NewJobHandler(queue, store)

	payload := `{"video_id":"x","video_name":"a.mp4","subtitle_id":"y","subtitle_name":"a.srt","quality":"lossless"}`
	req := httptest.NewRequest(http.MethodPost, "/api/burn", strings.NewReader(payload))
	rec := httptest.NewRecorder()

	h.Enqueue(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestLogin(t *testing.T) {
	database := newTestDB(t)
	if err := database.EnsureAdmin("admin", "hunter2"); err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	h := NewAuthHandler(database, auth.NewJWTService("test-secret", time.Hour))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"username":"admin","password":"hunter2"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Errorf("no token in response: %s", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"username":"admin","password":"wrong"}`))
	rec = httptest.NewRecorder()
	h.Login(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: status = %d", rec.Code)
	}
}
