// Package api exposes the exam CRUD surface. Each mutating handler persists
// first and then publishes the matching domain event; publishing can never
// fail the request.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"classwire/internal/store"
	"classwire/pkg/types"
)

// Publisher is the emitter surface the handlers publish through.
type Publisher interface {
	Publish(ev types.Event)
}

// StatsSource reports live connection statistics.
type StatsSource interface {
	Stats() map[string]int
}

type Server struct {
	store     *store.Store
	publisher Publisher
	stats     StatsSource
	secret    []byte
	validate  *validator.Validate
	log       *slog.Logger
	mux       *http.ServeMux
}

func NewServer(st *store.Store, pub Publisher, stats StatsSource, secret string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		store:     st,
		publisher: pub,
		stats:     stats,
		secret:    []byte(secret),
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		log:       log,
		mux:       http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.Handle("POST /api/exams",
		s.auth(s.requireRole(s.createExam, types.RoleInstructor)))
	s.mux.Handle("PATCH /api/exams/{id}/status",
		s.auth(s.requireRole(s.updateExamStatus, types.RoleInstructor, types.RoleAdmin)))
	s.mux.Handle("POST /api/exams/{id}/submissions",
		s.auth(s.requireRole(s.addSubmission, types.RoleInstructor)))
	s.mux.Handle("GET /api/exams/{id}/submissions",
		s.auth(s.requireRole(s.listSubmissions, types.RoleInstructor, types.RoleAdmin)))
	s.mux.Handle("GET /api/stats",
		s.auth(s.requireRole(s.liveStats, types.RoleAdmin)))
	s.mux.HandleFunc("GET /health", s.health)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.mux.ServeHTTP(w, r)
}

type createExamRequest struct {
	Title  string `json:"title" validate:"required,max=200"`
	Status string `json:"status" validate:"omitempty,oneof=active inactive"`
}

func (s *Server) createExam(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	var req createExamRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Status == "" {
		req.Status = store.StatusActive
	}

	exam, err := s.store.CreateExam(r.Context(), req.Title, req.Status, id.UserID)
	if err != nil {
		s.log.Error("creating exam failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not create exam")
		return
	}

	s.publisher.Publish(types.ExamCreated{ExamTitle: exam.Title})
	writeJSON(w, http.StatusCreated, exam)
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive"`
}

func (s *Server) updateExamStatus(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	var req updateStatusRequest
	if !s.decode(w, r, &req) {
		return
	}

	exam, ok := s.ownedExam(w, r, id)
	if !ok {
		return
	}

	updated, err := s.store.UpdateExamStatus(r.Context(), exam.ID, req.Status)
	if err != nil {
		s.log.Error("updating exam status failed", "exam_id", exam.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not update exam")
		return
	}

	s.publisher.Publish(types.ExamStatusChanged{
		ExamTitle: updated.Title,
		NewStatus: updated.Status,
	})
	writeJSON(w, http.StatusOK, updated)
}

type addSubmissionRequest struct {
	StudentName string  `json:"studentName" validate:"required,max=200"`
	Score       float64 `json:"score" validate:"gte=0,lte=100"`
}

func (s *Server) addSubmission(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	var req addSubmissionRequest
	if !s.decode(w, r, &req) {
		return
	}

	exam, ok := s.ownedExam(w, r, id)
	if !ok {
		return
	}

	sub, err := s.store.AddSubmission(r.Context(), exam.ID, req.StudentName, req.Score)
	if err != nil {
		s.log.Error("recording submission failed", "exam_id", exam.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not record submission")
		return
	}

	s.publisher.Publish(types.NewSubmission{
		StudentName:  sub.StudentName,
		Score:        sub.Score,
		ExamTitle:    exam.Title,
		InstructorID: exam.InstructorID,
	})
	writeJSON(w, http.StatusCreated, sub)
}

func (s *Server) listSubmissions(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	exam, ok := s.ownedExam(w, r, id)
	if !ok {
		return
	}

	subs, err := s.store.ListSubmissions(r.Context(), exam.ID)
	if err != nil {
		s.log.Error("listing submissions failed", "exam_id", exam.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not list submissions")
		return
	}
	if subs == nil {
		subs = []store.Submission{}
	}
	writeJSON(w, http.StatusOK, subs)
}

func (s *Server) liveStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stats.Stats())
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ownedExam loads the exam in the path and enforces that instructors only
// touch their own exams. Admins pass for any exam.
func (s *Server) ownedExam(w http.ResponseWriter, r *http.Request, id Identity) (store.Exam, bool) {
	exam, err := s.store.GetExam(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrExamNotFound) {
		writeError(w, http.StatusNotFound, "exam not found")
		return store.Exam{}, false
	}
	if err != nil {
		s.log.Error("loading exam failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not load exam")
		return store.Exam{}, false
	}
	if id.Role == types.RoleInstructor && exam.InstructorID != id.UserID {
		writeError(w, http.StatusForbidden, "not your exam")
		return store.Exam{}, false
	}
	return exam, true
}

// decode parses and validates a JSON request body. On failure it writes the
// error response and returns false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
