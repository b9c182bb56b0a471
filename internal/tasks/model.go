package tasks

import "time"

// Priority runs from 1 (low) to 3 (high).
const (
	MinPriority = 1
	MaxPriority = 3
)

// Allowed values for ListFilter.Sort.
const (
	SortCreatedAt = "created_at"
	SortDueDate   = "due_date"
	SortPriority  = "priority"
)

// Allowed values for ListFilter.Order.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Pagination bounds for ListFilter.Limit.
const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// Task is a stored to-do item. Details and DueDate are nullable;
// UpdatedAt stays null until the first successful update.
type Task struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	Details   *string    `json:"details"`
	Done      bool       `json:"is_done"`
	Priority  int        `json:"priority"`
	DueDate   *string    `json:"due_date"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

// NewTask carries the fields of a task to be created. The repository
// assigns ID and CreatedAt.
type NewTask struct {
	Title    string
	Details  *string
	Done     bool
	Priority int
	DueDate  *string
}

// TaskPatch is a partial update: nil fields keep their stored values.
// ClearDetails and ClearDueDate reset the two nullable columns; they
// take precedence over the corresponding value fields.
type TaskPatch struct {
	Title        *string
	Details      *string
	ClearDetails bool
	Done         *bool
	Priority     *int
	DueDate      *string
	ClearDueDate bool
}

// ListFilter narrows, orders, and pages a listing. Zero values mean
// "no filter"; Sort, Order, and Limit must be populated (the HTTP layer
// applies the defaults).
type ListFilter struct {
	// Query matches case-insensitively against title and details.
	Query string
	// Done filters by completion status when non-nil.
	Done *bool
	// Priority filters by exact priority when non-nil.
	Priority *int
	// DueBefore keeps tasks with due_date <= the given timestamp string;
	// DueAfter keeps tasks with due_date >= it. Tasks without a due date
	// drop out of either range. Comparison is lexicographic, so ranges
	// behave when clients stick to one timestamp format.
	DueBefore string
	DueAfter  string

	Sort   string
	Order  string
	Offset int
	Limit  int
}

// DefaultListFilter returns the listing used when no query parameters
// are given: everything, oldest first, first 50 rows.
func DefaultListFilter() ListFilter {
	return ListFilter{
		Sort:  SortCreatedAt,
		Order: OrderAsc,
		Limit: DefaultLimit,
	}
}
