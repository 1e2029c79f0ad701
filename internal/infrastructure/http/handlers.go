package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/0xcro3dile/coursechat-go/internal/domain/entities"
	"github.com/0xcro3dile/coursechat-go/internal/pkg/apperrors"
)

const maxRequestBody = 1 << 20

// QueryResponse wraps an answer: a bare string for plain oracle text,
// otherwise {text, courses}.
type QueryResponse struct {
	Answer *entities.Answer `json:"answer"`
}

// ErrorResponse is a standardized error message for API responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse reports liveness and the size of the served catalog.
type HealthResponse struct {
	Status      string `json:"status"`
	Courses     int    `json:"courses"`
	Oracle      string `json:"oracle,omitempty"`
	IndexChunks *int   `json:"indexChunks,omitempty"`
}

// CoursesResponse lists catalog records.
type CoursesResponse struct {
	Courses []entities.Course `json:"courses"`
}

// handleQuery answers a question from the current router.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req entities.ChatRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	answer, err := s.router.Load().Query(r.Context(), &req)
	switch {
	case errors.Is(err, apperrors.ErrEmptyQuestion):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, apperrors.ErrOracleUnavailable):
		s.logger.Error().Err(err).Str("request_id", RequestID(r.Context())).Msg("oracle unavailable")
		writeError(w, http.StatusServiceUnavailable, apperrors.ErrOracleUnavailable.Error())
		return
	case err != nil:
		s.logger.Error().Err(err).Str("request_id", RequestID(r.Context())).Msg("query failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.metrics.RecordQuery(answer.Route)
	writeJSON(w, http.StatusOK, QueryResponse{Answer: answer})
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Courses: s.router.Load().Catalog().Len(),
	}
	if s.opts.OracleState != nil {
		resp.Oracle = s.opts.OracleState()
	}
	if s.opts.IndexSize != nil {
		if n, err := s.opts.IndexSize(r.Context()); err == nil {
			resp.IndexChunks = &n
		} else {
			s.logger.Warn().Err(err).Msg("index size probe failed")
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCourses lists the catalog, or one department with ?department=.
func (s *Server) handleCourses(w http.ResponseWriter, r *http.Request) {
	cat := s.router.Load().Catalog()
	courses := cat.All()
	if dept := strings.TrimSpace(r.URL.Query().Get("department")); dept != "" {
		courses = cat.ByDepartment(dept)
	}
	if courses == nil {
		courses = []entities.Course{}
	}
	writeJSON(w, http.StatusOK, CoursesResponse{Courses: courses})
}

// handleCourse returns one catalog record by id.
func (s *Server) handleCourse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "courseID")
	course, ok := s.router.Load().Catalog().ByID(id)
	if !ok {
		writeError(w, http.StatusNotFound, apperrors.ErrCourseNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, course)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
