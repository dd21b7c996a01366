package handlers

import (
	"errors"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/subburn/backend/internal/ffmpeg"
	"github.com/subburn/backend/internal/storage"
	"github.com/subburn/backend/internal/subtitle"
)

// maxUploadBytes bounds a single multipart upload (videos included).
const maxUploadBytes = 4 << 30

type UploadHandler struct {
	store *storage.Store
}

func NewUploadHandler(store *storage.Store) *UploadHandler {
	return &UploadHandler{store: store}
}

type uploadResponse struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Kind     string            `json:"kind"` // video or subtitle
	Video    *ffmpeg.VideoInfo `json:"video,omitempty"`
	Subtitle *subtitleSummary  `json:"subtitle,omitempty"`
}

type subtitleSummary struct {
	Format  string `json:"format"`
	Entries int    `json:"entries"`
}

// Upload accepts one multipart file and classifies it by extension.
// Videos are probed immediately so a broken file fails at upload time,
// not mid-burn; subtitles are parsed the same way.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	name := storage.SanitizeName(header.Filename)
	var kind string
	switch {
	case storage.IsVideoFile(name):
		kind = "video"
	case storage.IsSubtitleFile(name):
		kind = "subtitle"
	default:
		jsonError(w, "unsupported file type", http.StatusBadRequest)
		return
	}

	id := uuid.New().String()
	path, err := h.store.SaveUpload(id, name, file)
	if err != nil {
		jsonError(w, "failed to store upload", http.StatusInternalServerError)
		return
	}

	resp := uploadResponse{ID: id, Name: name, Kind: kind}
	switch kind {
	case "video":
		info, err := ffmpeg.Probe(path)
		if err != nil {
			h.store.DeleteUpload(id)
			var metaErr *ffmpeg.MetadataError
			if errors.As(err, &metaErr) {
				jsonError(w, metaErr.Error(), http.StatusUnprocessableEntity)
			} else {
				jsonError(w, "failed to probe video", http.StatusInternalServerError)
			}
			return
		}
		resp.Video = info
	case "subtitle":
		data, err := os.ReadFile(path)
		if err != nil {
			jsonError(w, "failed to read upload", http.StatusInternalServerError)
			return
		}
		format, ok := subtitle.DetectFormat(name)
		if !ok {
			jsonError(w, "unsupported subtitle format", http.StatusBadRequest)
			return
		}
		entries, err := subtitle.Parse(data, format)
		if err != nil {
			h.store.DeleteUpload(id)
			jsonError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		resp.Subtitle = &subtitleSummary{Format: string(format), Entries: len(entries)}
	}

	jsonResponse(w, resp, http.StatusCreated)
}

// Thumbnail serves a cached representative frame of an uploaded video.
func (h *UploadHandler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	name := r.URL.Query().Get("name")
	if id == "" || name == "" {
		jsonError(w, "missing upload id or name", http.StatusBadRequest)
		return
	}

	path, err := h.store.UploadPath(id, name)
	if err != nil {
		jsonError(w, "upload not found", http.StatusNotFound)
		return
	}
	if !storage.IsVideoFile(path) {
		jsonError(w, "not a video upload", http.StatusBadRequest)
		return
	}

	thumbDir, err := h.store.ThumbnailDir(id)
	if err != nil {
		jsonError(w, "invalid upload id", http.StatusBadRequest)
		return
	}
	thumb, err := ffmpeg.GenerateThumbnail(path, thumbDir)
	if err != nil {
		jsonError(w, "failed to generate thumbnail", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "max-age=3600")
	http.ServeFile(w, r, thumb)
}

// Delete removes an upload and its thumbnail cache.
func (h *UploadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, "missing upload id", http.StatusBadRequest)
		return
	}
	if err := h.store.DeleteUpload(id); err != nil {
		jsonError(w, "failed to delete upload", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
