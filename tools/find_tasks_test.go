package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/richinex/taskchat/todoist"
)

type fakeSearcher struct {
	filterCalls []todoist.FilterQuery
	listCalls   []todoist.ListQuery
	userCalls   int
	collabCalls []string

	page          todoist.TaskPage
	user          todoist.User
	collaborators []todoist.Collaborator
	err           error
}

func (f *fakeSearcher) FilterTasks(ctx context.Context, q todoist.FilterQuery) (todoist.TaskPage, error) {
	f.filterCalls = append(f.filterCalls, q)
	return f.page, f.err
}

func (f *fakeSearcher) ListTasks(ctx context.Context, q todoist.ListQuery) (todoist.TaskPage, error) {
	f.listCalls = append(f.listCalls, q)
	return f.page, f.err
}

func (f *fakeSearcher) CurrentUser(ctx context.Context) (todoist.User, error) {
	f.userCalls++
	return f.user, f.err
}

func (f *fakeSearcher) ProjectCollaborators(ctx context.Context, projectID string) ([]todoist.Collaborator, error) {
	f.collabCalls = append(f.collabCalls, projectID)
	return f.collaborators, f.err
}

func TestParseFindTasksArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    string
		wantErr bool
	}{
		{"search text", `{"searchText":"report"}`, false},
		{"project only", `{"projectId":"p1"}`, false},
		{"labels only", `{"labels":["work"]}`, false},
		{"responsible user only", `{"responsibleUser":"me@example.com"}`, false},
		{"limit lower bound", `{"searchText":"x","limit":1}`, false},
		{"limit upper bound", `{"searchText":"x","limit":50}`, false},
		{"empty object", `{}`, true},
		{"empty input", ``, true},
		{"null", `null`, true},
		{"blank search text", `{"searchText":"   "}`, true},
		{"limit zero", `{"searchText":"x","limit":0}`, true},
		{"limit too large", `{"searchText":"x","limit":51}`, true},
		{"limit wrong type", `{"searchText":"x","limit":"10"}`, true},
		{"unknown field", `{"searchText":"x","priority":4}`, true},
		{"bad filtering enum", `{"searchText":"x","responsibleUserFiltering":"mine"}`, true},
		{"bad labels operator", `{"labels":["a"],"labelsOperator":"xor"}`, true},
		{"empty label", `{"labels":[""]}`, true},
		{"not an object", `["report"]`, true},
		{"trailing data", `{"searchText":"x"} {}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFindTasksArgs(json.RawMessage(tt.args))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !errors.Is(err, ErrInvalidArguments) {
					t.Errorf("expected ErrInvalidArguments, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseFindTasksArgsDefaults(t *testing.T) {
	args, err := ParseFindTasksArgs(json.RawMessage(`{"searchText":"  report ","labels":["@work"]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if args.SearchText != "report" {
		t.Errorf("expected trimmed search text, got %q", args.SearchText)
	}
	if args.Limit == nil || *args.Limit != DefaultFindTasksLimit {
		t.Errorf("expected default limit %d, got %v", DefaultFindTasksLimit, args.Limit)
	}
	if args.ResponsibleUserFiltering != FilterUnassignedOrMe {
		t.Errorf("expected default filtering %q, got %q", FilterUnassignedOrMe, args.ResponsibleUserFiltering)
	}
	if args.LabelsOperator != LabelsOr {
		t.Errorf("expected default operator %q, got %q", LabelsOr, args.LabelsOperator)
	}
	if args.Labels[0] != "work" {
		t.Errorf("expected label without @ prefix, got %q", args.Labels[0])
	}
}

func TestBuildFilterQuery(t *testing.T) {
	limit := 10
	tests := []struct {
		name string
		args FindTasksArgs
		want string
	}{
		{
			name: "search with default filtering",
			args: FindTasksArgs{SearchText: "report", ResponsibleUserFiltering: FilterUnassignedOrMe, LabelsOperator: LabelsOr},
			want: "search: report & !assigned to: others",
		},
		{
			name: "search for everyone",
			args: FindTasksArgs{SearchText: "report", ResponsibleUserFiltering: FilterAll},
			want: "search: report",
		},
		{
			name: "single label",
			args: FindTasksArgs{Labels: []string{"work"}, ResponsibleUserFiltering: FilterAll, LabelsOperator: LabelsOr},
			want: "@work",
		},
		{
			name: "labels or",
			args: FindTasksArgs{Labels: []string{"work", "home"}, ResponsibleUserFiltering: FilterAll, LabelsOperator: LabelsOr},
			want: "(@work | @home)",
		},
		{
			name: "labels and",
			args: FindTasksArgs{Labels: []string{"work", "urgent"}, ResponsibleUserFiltering: FilterAll, LabelsOperator: LabelsAnd},
			want: "(@work & @urgent)",
		},
		{
			name: "responsible user wins over filtering mode",
			args: FindTasksArgs{ResponsibleUser: "alice@example.com", ResponsibleUserFiltering: FilterAssigned},
			want: "assigned to: alice@example.com",
		},
		{
			name: "assigned",
			args: FindTasksArgs{SearchText: "x", ResponsibleUserFiltering: FilterAssigned, Limit: &limit},
			want: "search: x & assigned",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildFilterQuery(tt.args); got != tt.want {
				t.Errorf("BuildFilterQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}

func decodeOutput(t *testing.T, result ToolResult) findTasksOutput {
	t.Helper()
	var out findTasksOutput
	if err := json.Unmarshal(result.Output, &out); err != nil {
		t.Fatalf("tool output is not valid JSON: %v", err)
	}
	return out
}

func TestFindTasksUsesFilterEndpoint(t *testing.T) {
	searcher := &fakeSearcher{page: todoist.TaskPage{
		Results: []todoist.Task{
			{ID: "1", Content: "Write report", Priority: 4, Labels: []string{"work"}, Due: &todoist.Due{Date: "2026-10-20"}},
		},
		NextCursor: "next",
	}}
	tool := NewFindTasksTool(searcher)

	result, err := tool.Execute(context.Background(), json.RawMessage(`{"searchText":"report","limit":5,"cursor":"c1"}`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if len(searcher.filterCalls) != 1 || len(searcher.listCalls) != 0 {
		t.Fatalf("expected one filter call, got filter=%d list=%d", len(searcher.filterCalls), len(searcher.listCalls))
	}
	q := searcher.filterCalls[0]
	if q.Query != "search: report & !assigned to: others" {
		t.Errorf("unexpected query %q", q.Query)
	}
	if q.Limit != 5 || q.Cursor != "c1" {
		t.Errorf("unexpected paging: limit=%d cursor=%q", q.Limit, q.Cursor)
	}

	out := decodeOutput(t, result)
	if len(out.Tasks) != 1 || out.TotalCount != 1 {
		t.Fatalf("expected 1 task, got %+v", out)
	}
	task := out.Tasks[0]
	if task.Content != "Write report" || task.DueDate != "2026-10-20" || task.URL != "https://app.todoist.com/app/task/1" {
		t.Errorf("unexpected task summary: %+v", task)
	}
	if !out.HasMore || out.NextCursor != "next" {
		t.Errorf("expected pagination info, got hasMore=%v nextCursor=%q", out.HasMore, out.NextCursor)
	}
	if out.AppliedFilters.SearchText != "report" {
		t.Errorf("expected applied filters to echo search text, got %+v", out.AppliedFilters)
	}
}

func TestFindTasksEmptyResult(t *testing.T) {
	tool := NewFindTasksTool(&fakeSearcher{})

	result, err := tool.Execute(context.Background(), json.RawMessage(`{"searchText":"nothing"}`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	out := decodeOutput(t, result)
	if out.Tasks == nil || len(out.Tasks) != 0 {
		t.Errorf("expected empty task list, got %+v", out.Tasks)
	}
	if out.HasMore {
		t.Error("expected hasMore to be false")
	}
}

func TestFindTasksContainerFiltersLocally(t *testing.T) {
	searcher := &fakeSearcher{
		user: todoist.User{ID: "me"},
		page: todoist.TaskPage{Results: []todoist.Task{
			{ID: "1", Content: "Quarterly report", Labels: []string{"work"}},
			{ID: "2", Content: "Groceries", Labels: []string{"home"}},
			{ID: "3", Content: "Review", Description: "the REPORT draft", ResponsibleUID: "me", Labels: []string{"work"}},
			{ID: "4", Content: "Report for Bob", ResponsibleUID: "bob", Labels: []string{"work"}},
		}},
	}
	tool := NewFindTasksTool(searcher)

	result, err := tool.Execute(context.Background(), json.RawMessage(`{"projectId":"p1","searchText":"report","labels":["work"]}`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if len(searcher.listCalls) != 1 || len(searcher.filterCalls) != 0 {
		t.Fatalf("expected one list call, got list=%d filter=%d", len(searcher.listCalls), len(searcher.filterCalls))
	}
	q := searcher.listCalls[0]
	if q.ProjectID != "p1" || q.Label != "work" || q.Limit != DefaultFindTasksLimit {
		t.Errorf("unexpected list query: %+v", q)
	}
	if searcher.userCalls != 1 {
		t.Errorf("expected current user lookup, got %d", searcher.userCalls)
	}

	out := decodeOutput(t, result)
	var ids []string
	for _, task := range out.Tasks {
		ids = append(ids, task.ID)
	}
	if len(ids) != 2 || ids[0] != "1" || ids[1] != "3" {
		t.Errorf("expected tasks [1 3], got %v", ids)
	}
}

func TestFindTasksContainerResponsibleUser(t *testing.T) {
	tasks := []todoist.Task{
		{ID: "1", ProjectID: "p1", ResponsibleUID: "u42"},
		{ID: "2", ProjectID: "p1", ResponsibleUID: "u7"},
		{ID: "3", ProjectID: "p1"},
	}
	me := todoist.User{ID: "u42", Email: "alice@example.com", FullName: "Alice Smith"}
	collaborators := []todoist.Collaborator{
		{ID: "u42", Name: "Alice Smith", Email: "alice@example.com"},
		{ID: "u7", Name: "Bob Jones", Email: "bob@example.com"},
	}

	tests := []struct {
		name        string
		args        string
		wantID      string
		wantCollabs []string
	}{
		{"own id", `{"projectId":"p1","responsibleUser":"u42"}`, "1", nil},
		{"own email", `{"projectId":"p1","responsibleUser":"alice@example.com"}`, "1", nil},
		{"own name any case", `{"projectId":"p1","responsibleUser":"alice smith"}`, "1", nil},
		{"collaborator id", `{"projectId":"p1","responsibleUser":"u7"}`, "2", []string{"p1"}},
		{"collaborator email", `{"projectId":"p1","responsibleUser":"BOB@example.com"}`, "2", []string{"p1"}},
		{"collaborator name", `{"projectId":"p1","responsibleUser":"Bob Jones"}`, "2", []string{"p1"}},
		{"section uses task project", `{"sectionId":"s1","responsibleUser":"bob@example.com"}`, "2", []string{"p1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := &fakeSearcher{
				page:          todoist.TaskPage{Results: tasks},
				user:          me,
				collaborators: collaborators,
			}
			result, err := NewFindTasksTool(searcher).Execute(context.Background(), json.RawMessage(tt.args))
			if err != nil {
				t.Fatalf("Execute failed: %v", err)
			}

			out := decodeOutput(t, result)
			if len(out.Tasks) != 1 || out.Tasks[0].ID != tt.wantID {
				t.Errorf("expected only task %s, got %+v", tt.wantID, out.Tasks)
			}
			if len(searcher.collabCalls) != len(tt.wantCollabs) {
				t.Errorf("expected collaborator lookups %v, got %v", tt.wantCollabs, searcher.collabCalls)
			}
		})
	}
}

func TestFindTasksContainerResponsibleUserUnknown(t *testing.T) {
	searcher := &fakeSearcher{
		page: todoist.TaskPage{Results: []todoist.Task{{ID: "1", ProjectID: "p1", ResponsibleUID: "u42"}}},
		user: todoist.User{ID: "u42", Email: "alice@example.com"},
		collaborators: []todoist.Collaborator{
			{ID: "u42", Name: "Alice", Email: "alice@example.com"},
		},
	}

	_, err := NewFindTasksTool(searcher).Execute(context.Background(),
		json.RawMessage(`{"projectId":"p1","responsibleUser":"carol@example.com"}`))
	if !errors.Is(err, ErrInvalidArguments) {
		t.Fatalf("expected ErrInvalidArguments, got %v", err)
	}
}

func TestFindTasksContainerLabelOperators(t *testing.T) {
	tasks := []todoist.Task{
		{ID: "1", Labels: []string{"work", "urgent"}},
		{ID: "2", Labels: []string{"work"}},
		{ID: "3", Labels: []string{"urgent"}},
		{ID: "4"},
	}

	tests := []struct {
		name      string
		args      string
		wantIDs   int
		wantLabel string
	}{
		{"and", `{"sectionId":"s1","labels":["work","urgent"],"labelsOperator":"and","responsibleUserFiltering":"all"}`, 1, "work"},
		{"or", `{"sectionId":"s1","labels":["work","urgent"],"responsibleUserFiltering":"all"}`, 3, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := &fakeSearcher{page: todoist.TaskPage{Results: tasks}}
			result, err := NewFindTasksTool(searcher).Execute(context.Background(), json.RawMessage(tt.args))
			if err != nil {
				t.Fatalf("Execute failed: %v", err)
			}
			if searcher.listCalls[0].Label != tt.wantLabel {
				t.Errorf("expected server-side label %q, got %q", tt.wantLabel, searcher.listCalls[0].Label)
			}
			if searcher.userCalls != 0 {
				t.Errorf("expected no user lookup for filtering=all, got %d", searcher.userCalls)
			}
			if out := decodeOutput(t, result); len(out.Tasks) != tt.wantIDs {
				t.Errorf("expected %d tasks, got %d", tt.wantIDs, len(out.Tasks))
			}
		})
	}
}

func TestFindTasksInvalidArgumentsSkipService(t *testing.T) {
	searcher := &fakeSearcher{}
	tool := NewFindTasksTool(searcher)

	_, err := tool.Execute(context.Background(), json.RawMessage(`{"limit":100,"searchText":"x"}`))
	if !errors.Is(err, ErrInvalidArguments) {
		t.Fatalf("expected ErrInvalidArguments, got %v", err)
	}
	if len(searcher.filterCalls)+len(searcher.listCalls)+searcher.userCalls+len(searcher.collabCalls) != 0 {
		t.Error("task service must not be called with invalid arguments")
	}
}

func TestFindTasksPropagatesServiceError(t *testing.T) {
	apiErr := &todoist.APIError{Endpoint: "/tasks/filter", StatusCode: 500}
	tool := NewFindTasksTool(&fakeSearcher{err: apiErr})

	_, err := tool.Execute(context.Background(), json.RawMessage(`{"searchText":"x"}`))
	var got *todoist.APIError
	if !errors.As(err, &got) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if got.StatusCode != 500 {
		t.Errorf("expected status 500, got %d", got.StatusCode)
	}
}

func TestFindTasksDefinition(t *testing.T) {
	def := NewFindTasksTool(nil).Definition()
	if def.Name != FindTasksName {
		t.Errorf("expected name %q, got %q", FindTasksName, def.Name)
	}
	if def.Parameters["type"] != "object" {
		t.Errorf("expected object schema, got %v", def.Parameters["type"])
	}

	props, ok := def.Parameters["properties"].(map[string]interface{})
	if !ok {
		t.Fatal("expected properties map")
	}
	for _, name := range []string{
		"searchText", "projectId", "sectionId", "parentId", "responsibleUser",
		"responsibleUserFiltering", "limit", "cursor", "labels", "labelsOperator",
	} {
		if _, ok := props[name]; !ok {
			t.Errorf("missing property %q", name)
		}
	}

	limit := props["limit"].(map[string]interface{})
	if limit["minimum"] != MinFindTasksLimit || limit["maximum"] != MaxFindTasksLimit {
		t.Errorf("unexpected limit bounds: %v", limit)
	}

	if _, err := json.Marshal(def.Parameters); err != nil {
		t.Errorf("schema must serialize: %v", err)
	}
}
