package tasks

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type createTaskRequest struct {
	Title    string  `json:"title"`
	Details  *string `json:"details"`
	IsDone   bool    `json:"is_done"`
	Priority *int    `json:"priority"`
	DueDate  *string `json:"due_date"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errResponse struct {
	Error   string       `json:"error"`
	Details []fieldError `json:"details,omitempty"`
}

func RegisterRoutes(r chi.Router, repo Repository) {
	r.Post("/tasks", createTask(repo))
	r.Get("/tasks", listTasks(repo))
	r.Get("/tasks/{id}", getTask(repo))
	r.Put("/tasks/{id}", updateTask(repo))
	r.Delete("/tasks/{id}", deleteTask(repo))
}

func createTask(repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid_json"})
			return
		}

		if vErrs := validateNewTask(req); len(vErrs) > 0 {
			writeJSON(w, http.StatusUnprocessableEntity, errResponse{
				Error:   "validation_error",
				Details: vErrs,
			})
			return
		}

		nt := NewTask{
			Title:    req.Title,
			Details:  req.Details,
			Done:     req.IsDone,
			Priority: MinPriority,
			DueDate:  req.DueDate,
		}
		if req.Priority != nil {
			nt.Priority = *req.Priority
		}

		t, err := repo.Create(r.Context(), nt)
		if err != nil {
			if errors.Is(err, ErrTitleRequired) {
				writeJSON(w, http.StatusUnprocessableEntity, errResponse{
					Error: "validation_error",
					Details: []fieldError{
						{Field: "title", Message: "title is required"},
					},
				})
				return
			}
			writeJSON(w, http.StatusInternalServerError, errResponse{Error: "unexpected_error"})
			return
		}

		writeJSON(w, http.StatusCreated, t)
	}
}

func listTasks(repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f := DefaultListFilter()
		f.Query = q.Get("q")

		// Unknown sort/order values are a bad request, not a field error.
		if v := q.Get("sort"); v != "" {
			switch v {
			case SortCreatedAt, SortDueDate, SortPriority:
				f.Sort = v
			default:
				writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid_sort"})
				return
			}
		}
		if v := q.Get("order"); v != "" {
			switch v {
			case OrderAsc, OrderDesc:
				f.Order = v
			default:
				writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid_order"})
				return
			}
		}

		var vErrs []fieldError
		if v := q.Get("is_done"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				vErrs = append(vErrs, fieldError{Field: "is_done", Message: "is_done must be true or false"})
			} else {
				f.Done = &b
			}
		}
		if v := q.Get("priority"); v != "" {
			p, err := strconv.Atoi(v)
			switch {
			case err != nil:
				vErrs = append(vErrs, fieldError{Field: "priority", Message: "priority must be an integer"})
			default:
				if fe := priorityError(p); fe != nil {
					vErrs = append(vErrs, *fe)
				} else {
					f.Priority = &p
				}
			}
		}
		if v := q.Get("due_before"); v != "" {
			if !validDueDate(v) {
				vErrs = append(vErrs, fieldError{Field: "due_before", Message: "due_before must be a valid ISO 8601 timestamp"})
			} else {
				f.DueBefore = v
			}
		}
		if v := q.Get("due_after"); v != "" {
			if !validDueDate(v) {
				vErrs = append(vErrs, fieldError{Field: "due_after", Message: "due_after must be a valid ISO 8601 timestamp"})
			} else {
				f.DueAfter = v
			}
		}
		if v := q.Get("offset"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				vErrs = append(vErrs, fieldError{Field: "offset", Message: "offset must be a non-negative integer"})
			} else {
				f.Offset = n
			}
		}
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > MaxLimit {
				vErrs = append(vErrs, fieldError{Field: "limit", Message: fmt.Sprintf("limit must be between 1 and %d", MaxLimit)})
			} else {
				f.Limit = n
			}
		}
		if len(vErrs) > 0 {
			writeJSON(w, http.StatusUnprocessableEntity, errResponse{
				Error:   "validation_error",
				Details: vErrs,
			})
			return
		}

		tasks, err := repo.List(r.Context(), f)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errResponse{Error: "unexpected_error"})
			return
		}
		writeJSON(w, http.StatusOK, tasks)
	}
}

func getTask(repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, fe := parseTaskID(chi.URLParam(r, "id"))
		if fe != nil {
			writeJSON(w, http.StatusUnprocessableEntity, errResponse{
				Error:   "validation_error",
				Details: []fieldError{*fe},
			})
			return
		}

		t, err := repo.Get(r.Context(), id)
		switch {
		case errors.Is(err, ErrNotFound):
			writeJSON(w, http.StatusNotFound, errResponse{Error: "not_found"})
		case err != nil:
			writeJSON(w, http.StatusInternalServerError, errResponse{Error: "unexpected_error"})
		default:
			writeJSON(w, http.StatusOK, t)
		}
	}
}

func updateTask(repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, fe := parseTaskID(chi.URLParam(r, "id"))
		if fe != nil {
			writeJSON(w, http.StatusUnprocessableEntity, errResponse{
				Error:   "validation_error",
				Details: []fieldError{*fe},
			})
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid_json"})
			return
		}
		patch, vErrs, err := parseTaskPatch(body)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid_json"})
			return
		}
		if len(vErrs) > 0 {
			writeJSON(w, http.StatusUnprocessableEntity, errResponse{
				Error:   "validation_error",
				Details: vErrs,
			})
			return
		}

		t, err := repo.Update(r.Context(), id, patch)
		switch {
		case errors.Is(err, ErrNotFound):
			writeJSON(w, http.StatusNotFound, errResponse{Error: "not_found"})
		case err != nil:
			writeJSON(w, http.StatusInternalServerError, errResponse{Error: "unexpected_error"})
		default:
			writeJSON(w, http.StatusOK, t)
		}
	}
}

func deleteTask(repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, fe := parseTaskID(chi.URLParam(r, "id"))
		if fe != nil {
			writeJSON(w, http.StatusUnprocessableEntity, errResponse{
				Error:   "validation_error",
				Details: []fieldError{*fe},
			})
			return
		}

		err := repo.Delete(r.Context(), id)
		switch {
		case errors.Is(err, ErrNotFound):
			writeJSON(w, http.StatusNotFound, errResponse{Error: "not_found"})
		case err != nil:
			writeJSON(w, http.StatusInternalServerError, errResponse{Error: "unexpected_error"})
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}
}

// parseTaskID rejects non-numeric and non-positive ids before they
// reach the repository.
func parseTaskID(raw string) (int64, *fieldError) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, &fieldError{Field: "id", Message: "id must be a positive integer"}
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
