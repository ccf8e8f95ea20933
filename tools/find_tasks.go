// Find Tasks Tool - read-only Todoist task search.
//
// Information Hiding:
// - Strict argument decoding and defaulting hidden
// - Choice between the filter endpoint and the list endpoint hidden
// - Todoist filter syntax hidden
// - Result trimming for the model hidden

package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/richinex/taskchat/llm"
	"github.com/richinex/taskchat/todoist"
)

// FindTasksName is the capability name exposed to the model.
const FindTasksName = "find-tasks"

// Responsible-user filtering modes.
const (
	FilterAssigned       = "assigned"
	FilterUnassignedOrMe = "unassignedOrMe"
	FilterAll            = "all"
)

// Label combination operators.
const (
	LabelsAnd = "and"
	LabelsOr  = "or"
)

// Page size bounds.
const (
	MinFindTasksLimit     = 1
	MaxFindTasksLimit     = 50
	DefaultFindTasksLimit = 10
)

// TaskSearcher is the read-only subset of the Todoist API used by FindTasksTool.
type TaskSearcher interface {
	FilterTasks(ctx context.Context, q todoist.FilterQuery) (todoist.TaskPage, error)
	ListTasks(ctx context.Context, q todoist.ListQuery) (todoist.TaskPage, error)
	CurrentUser(ctx context.Context) (todoist.User, error)
	ProjectCollaborators(ctx context.Context, projectID string) ([]todoist.Collaborator, error)
}

// FindTasksArgs is the typed form of the find-tasks arguments.
type FindTasksArgs struct {
	SearchText               string   `json:"searchText,omitempty"`
	ProjectID                string   `json:"projectId,omitempty"`
	SectionID                string   `json:"sectionId,omitempty"`
	ParentID                 string   `json:"parentId,omitempty"`
	ResponsibleUser          string   `json:"responsibleUser,omitempty"`
	ResponsibleUserFiltering string   `json:"responsibleUserFiltering,omitempty"`
	Limit                    *int     `json:"limit,omitempty"`
	Cursor                   string   `json:"cursor,omitempty"`
	Labels                   []string `json:"labels,omitempty"`
	LabelsOperator           string   `json:"labelsOperator,omitempty"`
}

// hasContainer reports whether the search is scoped to a project, section or parent.
func (a FindTasksArgs) hasContainer() bool {
	return a.ProjectID != "" || a.SectionID != "" || a.ParentID != ""
}

// ParseFindTasksArgs decodes and validates raw arguments. Unknown fields,
// wrong types, unknown enum values and out-of-range limits are rejected.
// Defaults are applied to omitted optional fields.
func ParseFindTasksArgs(raw json.RawMessage) (FindTasksArgs, error) {
	var args FindTasksArgs

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		trimmed = []byte("{}")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&args); err != nil {
		return FindTasksArgs{}, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return FindTasksArgs{}, fmt.Errorf("%w: trailing data after arguments object", ErrInvalidArguments)
	}

	args.SearchText = strings.TrimSpace(args.SearchText)

	switch args.ResponsibleUserFiltering {
	case "":
		args.ResponsibleUserFiltering = FilterUnassignedOrMe
	case FilterAssigned, FilterUnassignedOrMe, FilterAll:
	default:
		return FindTasksArgs{}, fmt.Errorf("%w: responsibleUserFiltering must be one of %q, %q, %q, got %q",
			ErrInvalidArguments, FilterAssigned, FilterUnassignedOrMe, FilterAll, args.ResponsibleUserFiltering)
	}

	switch args.LabelsOperator {
	case "":
		args.LabelsOperator = LabelsOr
	case LabelsAnd, LabelsOr:
	default:
		return FindTasksArgs{}, fmt.Errorf("%w: labelsOperator must be %q or %q, got %q",
			ErrInvalidArguments, LabelsAnd, LabelsOr, args.LabelsOperator)
	}

	if args.Limit == nil {
		limit := DefaultFindTasksLimit
		args.Limit = &limit
	} else if *args.Limit < MinFindTasksLimit || *args.Limit > MaxFindTasksLimit {
		return FindTasksArgs{}, fmt.Errorf("%w: limit must be between %d and %d, got %d",
			ErrInvalidArguments, MinFindTasksLimit, MaxFindTasksLimit, *args.Limit)
	}

	for i, label := range args.Labels {
		label = strings.TrimPrefix(strings.TrimSpace(label), "@")
		if label == "" {
			return FindTasksArgs{}, fmt.Errorf("%w: labels[%d] is empty", ErrInvalidArguments, i)
		}
		args.Labels[i] = label
	}

	if args.SearchText == "" && !args.hasContainer() && len(args.Labels) == 0 && args.ResponsibleUser == "" {
		return FindTasksArgs{}, fmt.Errorf("%w: at least one of searchText, projectId, sectionId, parentId, labels or responsibleUser is required",
			ErrInvalidArguments)
	}

	return args, nil
}

// FindTasksTool searches the user's Todoist tasks.
type FindTasksTool struct {
	searcher TaskSearcher
}

// NewFindTasksTool creates the tool over a task searcher.
func NewFindTasksTool(searcher TaskSearcher) *FindTasksTool {
	return &FindTasksTool{searcher: searcher}
}

// Definition returns the static find-tasks declaration.
func (t *FindTasksTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name: FindTasksName,
		Description: "Find tasks by text search, or by project/section/parent container, responsible user, or labels. " +
			"Results are paginated; pass the returned nextCursor to fetch the next page.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"searchText": map[string]interface{}{
					"type":        "string",
					"description": "The text to search for in tasks.",
				},
				"projectId": map[string]interface{}{
					"type":        "string",
					"description": "Find tasks in this project.",
				},
				"sectionId": map[string]interface{}{
					"type":        "string",
					"description": "Find tasks in this section.",
				},
				"parentId": map[string]interface{}{
					"type":        "string",
					"description": "Find subtasks of this parent task.",
				},
				"responsibleUser": map[string]interface{}{
					"type":        "string",
					"description": "Find tasks assigned to this user. Can be a user ID, name, or email address.",
				},
				"responsibleUserFiltering": map[string]interface{}{
					"type":        "string",
					"enum":        []string{FilterAssigned, FilterUnassignedOrMe, FilterAll},
					"description": "How to filter by responsible user when responsibleUser is not provided.",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"minimum":     MinFindTasksLimit,
					"maximum":     MaxFindTasksLimit,
					"description": "The maximum number of tasks to return.",
				},
				"cursor": map[string]interface{}{
					"type":        "string",
					"description": "The cursor to get the next page of tasks.",
				},
				"labels": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "The labels to filter the tasks by",
				},
				"labelsOperator": map[string]interface{}{
					"type":        "string",
					"enum":        []string{LabelsAnd, LabelsOr},
					"description": "The operator to use when filtering by labels.",
				},
			},
		},
	}
}

// Validate checks the arguments without touching the task service.
func (t *FindTasksTool) Validate(args json.RawMessage) error {
	_, err := ParseFindTasksArgs(args)
	return err
}

// taskSummary is the trimmed task shape returned to the model.
type taskSummary struct {
	ID             string   `json:"id"`
	Content        string   `json:"content"`
	Description    string   `json:"description,omitempty"`
	DueDate        string   `json:"dueDate,omitempty"`
	Recurring      bool     `json:"recurring,omitempty"`
	Priority       int      `json:"priority"`
	Labels         []string `json:"labels,omitempty"`
	ProjectID      string   `json:"projectId,omitempty"`
	SectionID      string   `json:"sectionId,omitempty"`
	ParentID       string   `json:"parentId,omitempty"`
	ResponsibleUID string   `json:"responsibleUid,omitempty"`
	URL            string   `json:"url"`
}

type findTasksOutput struct {
	Tasks          []taskSummary `json:"tasks"`
	NextCursor     string        `json:"nextCursor,omitempty"`
	HasMore        bool          `json:"hasMore"`
	TotalCount     int           `json:"totalCount"`
	AppliedFilters FindTasksArgs `json:"appliedFilters"`
}

// Execute runs the search and returns the matching page as JSON.
func (t *FindTasksTool) Execute(ctx context.Context, raw json.RawMessage) (ToolResult, error) {
	args, err := ParseFindTasksArgs(raw)
	if err != nil {
		return ToolResult{}, err
	}

	var tasks []todoist.Task
	var nextCursor string
	if args.hasContainer() {
		tasks, nextCursor, err = t.listTasks(ctx, args)
	} else {
		var page todoist.TaskPage
		page, err = t.searcher.FilterTasks(ctx, todoist.FilterQuery{
			Query:  BuildFilterQuery(args),
			Limit:  *args.Limit,
			Cursor: args.Cursor,
		})
		tasks, nextCursor = page.Results, page.NextCursor
	}
	if err != nil {
		return ToolResult{}, err
	}

	out := findTasksOutput{
		Tasks:          make([]taskSummary, 0, len(tasks)),
		NextCursor:     nextCursor,
		HasMore:        nextCursor != "",
		TotalCount:     len(tasks),
		AppliedFilters: args,
	}
	for _, task := range tasks {
		out.Tasks = append(out.Tasks, summarize(task))
	}

	return JSONResult(out)
}

// listTasks queries by container and applies the remaining filters locally,
// since the list endpoint does not accept search text or assignee filters.
func (t *FindTasksTool) listTasks(ctx context.Context, args FindTasksArgs) ([]todoist.Task, string, error) {
	q := todoist.ListQuery{
		ProjectID: args.ProjectID,
		SectionID: args.SectionID,
		ParentID:  args.ParentID,
		Limit:     *args.Limit,
		Cursor:    args.Cursor,
	}
	if len(args.Labels) == 1 || (len(args.Labels) > 1 && args.LabelsOperator == LabelsAnd) {
		q.Label = args.Labels[0]
	}

	page, err := t.searcher.ListTasks(ctx, q)
	if err != nil {
		return nil, "", err
	}

	// uid is the responsible user's ID, or the caller's ID for unassignedOrMe.
	var uid string
	switch {
	case args.ResponsibleUser != "" && len(page.Results) > 0:
		projectID := args.ProjectID
		if projectID == "" {
			projectID = page.Results[0].ProjectID
		}
		uid, err = t.resolveUser(ctx, args.ResponsibleUser, projectID)
		if err != nil {
			return nil, "", err
		}
	case args.ResponsibleUser == "" && args.ResponsibleUserFiltering == FilterUnassignedOrMe:
		user, err := t.searcher.CurrentUser(ctx)
		if err != nil {
			return nil, "", err
		}
		uid = user.ID
	}

	needle := strings.ToLower(args.SearchText)
	var matched []todoist.Task
	for _, task := range page.Results {
		if needle != "" &&
			!strings.Contains(strings.ToLower(task.Content), needle) &&
			!strings.Contains(strings.ToLower(task.Description), needle) {
			continue
		}
		if !matchLabels(task.Labels, args.Labels, args.LabelsOperator) {
			continue
		}
		if !matchResponsible(task.ResponsibleUID, args, uid) {
			continue
		}
		matched = append(matched, task)
	}
	return matched, page.NextCursor, nil
}

func matchLabels(have, want []string, operator string) bool {
	if len(want) == 0 {
		return true
	}
	set := make(map[string]bool, len(have))
	for _, l := range have {
		set[strings.ToLower(l)] = true
	}
	for _, l := range want {
		found := set[strings.ToLower(l)]
		if operator == LabelsOr && found {
			return true
		}
		if operator == LabelsAnd && !found {
			return false
		}
	}
	return operator == LabelsAnd
}

// resolveUser maps a user ID, email or full name to an ID. The caller is
// checked first, then the collaborators of projectID.
func (t *FindTasksTool) resolveUser(ctx context.Context, who, projectID string) (string, error) {
	user, err := t.searcher.CurrentUser(ctx)
	if err != nil {
		return "", err
	}
	if sameUser(who, user.ID, user.Email, user.FullName) {
		return user.ID, nil
	}

	if projectID != "" {
		collaborators, err := t.searcher.ProjectCollaborators(ctx, projectID)
		if err != nil {
			return "", err
		}
		for _, c := range collaborators {
			if sameUser(who, c.ID, c.Email, c.Name) {
				return c.ID, nil
			}
		}
	}

	return "", fmt.Errorf("%w: responsibleUser %q does not match you or a project collaborator",
		ErrInvalidArguments, who)
}

func sameUser(who, id, email, name string) bool {
	return who == id ||
		(email != "" && strings.EqualFold(who, email)) ||
		(name != "" && strings.EqualFold(who, name))
}

func matchResponsible(taskUID string, args FindTasksArgs, uid string) bool {
	if args.ResponsibleUser != "" {
		return taskUID == uid
	}
	switch args.ResponsibleUserFiltering {
	case FilterAssigned:
		return taskUID != ""
	case FilterUnassignedOrMe:
		return taskUID == "" || taskUID == uid
	default:
		return true
	}
}

// BuildFilterQuery renders args as a Todoist filter expression.
func BuildFilterQuery(args FindTasksArgs) string {
	var clauses []string

	if args.SearchText != "" {
		clauses = append(clauses, "search: "+args.SearchText)
	}

	if len(args.Labels) > 0 {
		labels := make([]string, len(args.Labels))
		for i, l := range args.Labels {
			labels[i] = "@" + l
		}
		sep := " | "
		if args.LabelsOperator == LabelsAnd {
			sep = " & "
		}
		clause := strings.Join(labels, sep)
		if len(labels) > 1 {
			clause = "(" + clause + ")"
		}
		clauses = append(clauses, clause)
	}

	switch {
	case args.ResponsibleUser != "":
		clauses = append(clauses, "assigned to: "+args.ResponsibleUser)
	case args.ResponsibleUserFiltering == FilterAssigned:
		clauses = append(clauses, "assigned")
	case args.ResponsibleUserFiltering == FilterUnassignedOrMe:
		clauses = append(clauses, "!assigned to: others")
	}

	return strings.Join(clauses, " & ")
}

func summarize(task todoist.Task) taskSummary {
	s := taskSummary{
		ID:             task.ID,
		Content:        task.Content,
		Description:    task.Description,
		Priority:       task.Priority,
		Labels:         task.Labels,
		ProjectID:      task.ProjectID,
		SectionID:      task.SectionID,
		ParentID:       task.ParentID,
		ResponsibleUID: task.ResponsibleUID,
		URL:            task.URL(),
	}
	if task.Due != nil {
		s.DueDate = task.Due.Date
		s.Recurring = task.Due.IsRecurring
	}
	return s
}

// Verify FindTasksTool implements Tool and todoist.Client implements TaskSearcher
var (
	_ Tool         = (*FindTasksTool)(nil)
	_ TaskSearcher = (*todoist.Client)(nil)
)
