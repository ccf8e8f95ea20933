package todoist

import "fmt"

// Due describes when a task is due.
type Due struct {
	Date        string `json:"date"`
	String      string `json:"string,omitempty"`
	IsRecurring bool   `json:"is_recurring"`
	Timezone    string `json:"timezone,omitempty"`
}

// Task is the subset of a Todoist task this client reads.
type Task struct {
	ID             string   `json:"id"`
	Content        string   `json:"content"`
	Description    string   `json:"description"`
	ProjectID      string   `json:"project_id"`
	SectionID      string   `json:"section_id"`
	ParentID       string   `json:"parent_id"`
	Labels         []string `json:"labels"`
	Priority       int      `json:"priority"`
	Due            *Due     `json:"due"`
	ResponsibleUID string   `json:"responsible_uid"`
	Checked        bool     `json:"checked"`
	AddedAt        string   `json:"added_at"`
}

// URL returns the web link for the task.
func (t Task) URL() string {
	return "https://app.todoist.com/app/task/" + t.ID
}

// TaskPage is one page of tasks plus the cursor for the next one.
// NextCursor is empty on the last page.
type TaskPage struct {
	Results    []Task `json:"results"`
	NextCursor string `json:"next_cursor"`
}

// User is the authenticated account.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// Collaborator is a user who shares a project.
type Collaborator struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type collaboratorPage struct {
	Results    []Collaborator `json:"results"`
	NextCursor string         `json:"next_cursor"`
}

// FilterQuery selects tasks with Todoist filter syntax.
type FilterQuery struct {
	Query  string
	Limit  int
	Cursor string
}

// ListQuery selects tasks by container and label.
type ListQuery struct {
	ProjectID string
	SectionID string
	ParentID  string
	Label     string
	Limit     int
	Cursor    string
}

// APIError is returned for non-2xx responses.
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("todoist %s: HTTP %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("todoist %s: HTTP %d: %s", e.Endpoint, e.StatusCode, e.Body)
}
