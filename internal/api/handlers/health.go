package handlers

import "net/http"

// Health is the unauthenticated liveness probe.
func Health(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]string{"status": "ok"}, http.StatusOK)
}
