package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/subburn/backend/internal/ffmpeg"
	"github.com/subburn/backend/internal/job"
	"github.com/subburn/backend/internal/storage"
)

type JobHandler struct {
	queue *job.Queue
	store *storage.Store
}

func NewJobHandler(queue *job.Queue, store *storage.Store) *JobHandler {
	return &JobHandler{queue: queue, store: store}
}

type burnRequest struct {
	VideoID        string `json:"video_id"`
	VideoName      string `json:"video_name"`
	SubtitleID     string `json:"subtitle_id"`
	SubtitleName   string `json:"subtitle_name"`
	Quality        string `json:"quality"`
	Threads        int    `json:"threads"`
	MemoryBudgetMB int    `json:"memory_budget_mb"`
	FontSize       int    `json:"font_size"`
	MarginBottom   int    `json:"margin_bottom"`
}

// Enqueue validates a burn request against stored uploads and queues it.
func (h *JobHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req burnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if _, err := ffmpeg.ParseQuality(req.Quality); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	videoPath, err := h.store.UploadPath(req.VideoID, req.VideoName)
	if err != nil {
		jsonError(w, "video upload not found", http.StatusNotFound)
		return
	}
	subtitlePath, err := h.store.UploadPath(req.SubtitleID, req.SubtitleName)
	if err != nil {
		jsonError(w, "subtitle upload not found", http.StatusNotFound)
		return
	}

	params := job.BurnParams{
		SubtitlePath:   subtitlePath,
		Quality:        req.Quality,
		Threads:        req.Threads,
		MemoryBudgetMB: req.MemoryBudgetMB,
		FontSize:       req.FontSize,
		MarginBottom:   req.MarginBottom,
	}
	j, err := h.queue.Enqueue(job.TypeBurn, videoPath, params)
	if err != nil {
		jsonError(w, "failed to enqueue job: "+err.Error(), http.StatusInternalServerError)
		return
	}

	jsonResponse(w, j, http.StatusAccepted)
}

// List returns all jobs, newest first.
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.queue.List()
	if err != nil {
		jsonError(w, "failed to list jobs: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if jobs == nil {
		jobs = []*job.Job{}
	}
	jsonResponse(w, jobs, http.StatusOK)
}

// Active returns only jobs that are still pending or running. Polled by
// the frontend, so kept out of the request log.
func (h *JobHandler) Active(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.queue.List()
	if err != nil {
		jsonError(w, "failed to list jobs: "+err.Error(), http.StatusInternalServerError)
		return
	}
	active := []*job.Job{}
	for _, j := range jobs {
		if j.Status == job.StatusPending || j.Status == job.StatusRunning {
			active = append(active, j)
		}
	}
	jsonResponse(w, active, http.StatusOK)
}

// Get returns a single job by ID.
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, "missing job ID", http.StatusBadRequest)
		return
	}

	j, err := h.queue.Get(id)
	if err != nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	jsonResponse(w, j, http.StatusOK)
}

// Cancel stops a pending or running job.
func (h *JobHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, "missing job ID", http.StatusBadRequest)
		return
	}

	if err := h.queue.Cancel(id); err != nil {
		jsonError(w, "failed to cancel job: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Retry re-queues a failed or cancelled job.
func (h *JobHandler) Retry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, "missing job ID", http.StatusBadRequest)
		return
	}

	j, err := h.queue.Retry(id)
	if err != nil {
		jsonError(w, "failed to retry job: "+err.Error(), http.StatusBadRequest)
		return
	}
	jsonResponse(w, j, http.StatusOK)
}

// Download streams a completed job's output video.
func (h *JobHandler) Download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, "missing job ID", http.StatusBadRequest)
		return
	}

	j, err := h.queue.Get(id)
	if err != nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	if j.Status != job.StatusCompleted {
		jsonError(w, "job is not completed", http.StatusConflict)
		return
	}

	path, err := h.store.ResultPath(id)
	if err != nil {
		jsonError(w, "result not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", `attachment; filename="subtitled.mp4"`)
	http.ServeFile(w, r, path)
}
