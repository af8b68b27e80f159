package httpadapter

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kirillkom/cinerec/internal/core/domain"
	"github.com/kirillkom/cinerec/internal/core/ports"
	"github.com/kirillkom/cinerec/internal/observability/metrics"
)

const noMatchesMessage = "No movies found matching your preferences. Try adjusting them!"

type Router struct {
	recommender ports.Recommender
	likes       ports.LikeRecorder
	queue       ports.MessageQueue
	catalog     ports.CatalogStore
	metrics     *metrics.HTTPServerMetrics
	service     string
}

func NewRouter(
	recommender ports.Recommender,
	likes ports.LikeRecorder,
	queue ports.MessageQueue,
	catalog ports.CatalogStore,
	m *metrics.HTTPServerMetrics,
	service string,
) *Router {
	return &Router{
		recommender: recommender,
		likes:       likes,
		queue:       queue,
		catalog:     catalog,
		metrics:     m,
		service:     service,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/recommendations", rt.recommend)
	mux.HandleFunc("/v1/likes", rt.updateLike)
	mux.HandleFunc("/v1/admin/sync", rt.requestSync)
	mux.Handle("/metrics", rt.metrics.Handler())

	var handler http.Handler = mux
	handler = rt.metrics.Middleware(rt.service, handler)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, r *http.Request) {
	count, err := rt.catalog.Count(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "movies": count})
}

func (rt *Router) recommend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Genre       string `json:"genre"`
		Mood        string `json:"mood"`
		Age         int    `json:"age"`
		SearchQuery string `json:"search_query"`
		UserID      int64  `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	start := time.Now()
	recommendations, err := rt.recommender.Recommend(r.Context(), domain.RecommendationRequest{
		Genre:       req.Genre,
		Mood:        req.Mood,
		Age:         req.Age,
		SearchQuery: req.SearchQuery,
		UserID:      req.UserID,
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	rt.metrics.RecordRecommendation(rt.service, len(recommendations), time.Since(start))

	response := map[string]any{"recommendations": recommendations}
	if len(recommendations) == 0 {
		response["message"] = noMatchesMessage
	}
	writeJSON(w, http.StatusOK, response)
}

func (rt *Router) updateLike(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID  int64 `json:"user_id"`
		MovieID int64 `json:"movie_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	var err error
	var action string
	switch r.Method {
	case http.MethodPost:
		action = "like"
		err = rt.likes.Like(r.Context(), req.UserID, req.MovieID)
	case http.MethodDelete:
		action = "unlike"
		err = rt.likes.Unlike(r.Context(), req.UserID, req.MovieID)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if err != nil {
		writeJSON(w, statusForError(err), map[string]string{"error": err.Error()})
		return
	}

	rt.metrics.RecordLikeUpdate(rt.service, action)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) requestSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Pages int `json:"pages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Pages <= 0 {
		req.Pages = 1
	}

	if err := rt.queue.PublishSyncRequested(r.Context(), req.Pages); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "accepted", "pages": req.Pages})
}

func statusForError(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrMovieNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
