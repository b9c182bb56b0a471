package tasks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const minTitleLen = 3

// dueDateLayouts are the timestamp shapes accepted for due_date. The
// value is stored verbatim; parsing only gates admission.
var dueDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func validDueDate(s string) bool {
	for _, layout := range dueDateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func titleError(title string) *fieldError {
	if utf8.RuneCountInString(title) < minTitleLen {
		return &fieldError{Field: "title", Message: fmt.Sprintf("title must be at least %d characters", minTitleLen)}
	}
	if strings.TrimSpace(title) == "" {
		return &fieldError{Field: "title", Message: "title must contain non-whitespace characters"}
	}
	return nil
}

func priorityError(p int) *fieldError {
	if p < MinPriority || p > MaxPriority {
		return &fieldError{Field: "priority", Message: fmt.Sprintf("priority must be between %d and %d", MinPriority, MaxPriority)}
	}
	return nil
}

func dueDateError(s string) *fieldError {
	if !validDueDate(s) {
		return &fieldError{Field: "due_date", Message: "due_date must be a valid ISO 8601 timestamp"}
	}
	return nil
}

func validateNewTask(req createTaskRequest) []fieldError {
	var errs []fieldError
	if fe := titleError(req.Title); fe != nil {
		errs = append(errs, *fe)
	}
	if req.Priority != nil {
		if fe := priorityError(*req.Priority); fe != nil {
			errs = append(errs, *fe)
		}
	}
	if req.DueDate != nil {
		if fe := dueDateError(*req.DueDate); fe != nil {
			errs = append(errs, *fe)
		}
	}
	return errs
}

// parseTaskPatch decodes a partial-update body. Only keys present in
// the JSON object take effect; an explicit null clears details or
// due_date and is ignored for the non-nullable fields. The returned
// error means the body was not a JSON object at all.
func parseTaskPatch(data []byte) (TaskPatch, []fieldError, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return TaskPatch{}, nil, err
	}

	var (
		p    TaskPatch
		errs []fieldError
	)

	if msg, ok := raw["title"]; ok && !isJSONNull(msg) {
		var v string
		if err := json.Unmarshal(msg, &v); err != nil {
			errs = append(errs, fieldError{Field: "title", Message: "title must be a string"})
		} else if fe := titleError(v); fe != nil {
			errs = append(errs, *fe)
		} else {
			p.Title = &v
		}
	}

	if msg, ok := raw["details"]; ok {
		if isJSONNull(msg) {
			p.ClearDetails = true
		} else {
			var v string
			if err := json.Unmarshal(msg, &v); err != nil {
				errs = append(errs, fieldError{Field: "details", Message: "details must be a string"})
			} else {
				p.Details = &v
			}
		}
	}

	if msg, ok := raw["is_done"]; ok && !isJSONNull(msg) {
		var v bool
		if err := json.Unmarshal(msg, &v); err != nil {
			errs = append(errs, fieldError{Field: "is_done", Message: "is_done must be a boolean"})
		} else {
			p.Done = &v
		}
	}

	if msg, ok := raw["priority"]; ok && !isJSONNull(msg) {
		var v int
		if err := json.Unmarshal(msg, &v); err != nil {
			errs = append(errs, fieldError{Field: "priority", Message: "priority must be an integer"})
		} else if fe := priorityError(v); fe != nil {
			errs = append(errs, *fe)
		} else {
			p.Priority = &v
		}
	}

	if msg, ok := raw["due_date"]; ok {
		if isJSONNull(msg) {
			p.ClearDueDate = true
		} else {
			var v string
			if err := json.Unmarshal(msg, &v); err != nil {
				errs = append(errs, fieldError{Field: "due_date", Message: "due_date must be a string"})
			} else if fe := dueDateError(v); fe != nil {
				errs = append(errs, *fe)
			} else {
				p.DueDate = &v
			}
		}
	}

	return p, errs, nil
}

func isJSONNull(msg json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(msg), []byte("null"))
}
