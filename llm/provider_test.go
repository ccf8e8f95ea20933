package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"google.golang.org/genai"
)

var findTasksDef = ToolDefinition{
	Name:        "find-tasks",
	Description: "Find tasks",
	Parameters: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"searchText": map[string]interface{}{"type": "string"},
			"limit":      map[string]interface{}{"type": "integer", "minimum": 1, "maximum": 50},
			"labelsOperator": map[string]interface{}{
				"type": "string",
				"enum": []string{"and", "or"},
			},
			"labels": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		},
	},
}

func TestOpenAIProviderCompleteWithToolCalls(t *testing.T) {
	var captured struct {
		Model    string `json:"model"`
		Messages []struct {
			Role       string `json:"role"`
			ToolCallID string `json:"tool_call_id"`
		} `json:"messages"`
		Tools []struct {
			Function struct {
				Name string `json:"name"`
			} `json:"function"`
		} `json:"tools"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o",
			"choices": [{
				"index": 0,
				"finish_reason": "tool_calls",
				"message": {
					"role": "assistant",
					"content": "",
					"tool_calls": [{
						"id": "call_1",
						"type": "function",
						"function": {"name": "find-tasks", "arguments": "{\"searchText\":\"report\"}"}
					}]
				}
			}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16}
		}`)
	}))
	defer srv.Close()

	provider := NewOpenAIProvider(ProviderConfig{APIKey: "sk-test", Model: "gpt-4o", MaxTokens: 100, BaseURL: srv.URL + "/v1"})

	turns := []Turn{
		SystemTurn("be helpful"),
		UserTurn("first"),
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "call_0", Name: "find-tasks", Arguments: json.RawMessage(`{}`)}}},
		ToolResultTurn("call_0", `{"tasks":[]}`),
	}

	resp, err := provider.Complete(context.Background(), turns, []ToolDefinition{findTasksDef})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if captured.Model != "gpt-4o" {
		t.Errorf("expected model gpt-4o, got %q", captured.Model)
	}
	if len(captured.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(captured.Messages))
	}
	if captured.Messages[0].Role != "system" || captured.Messages[1].Role != "user" {
		t.Errorf("unexpected leading roles: %+v", captured.Messages[:2])
	}
	if captured.Messages[3].Role != "tool" || captured.Messages[3].ToolCallID != "call_0" {
		t.Errorf("tool turn not correlated: %+v", captured.Messages[3])
	}
	if len(captured.Tools) != 1 || captured.Tools[0].Function.Name != "find-tasks" {
		t.Errorf("tool definition not sent: %+v", captured.Tools)
	}

	if !resp.HasToolCalls() {
		t.Fatal("expected tool calls in response")
	}
	if resp.ToolCalls[0].ID != "call_1" || resp.ToolCalls[0].Name != "find-tasks" {
		t.Errorf("unexpected tool call: %+v", resp.ToolCalls[0])
	}
	if string(resp.ToolCalls[0].Arguments) != `{"searchText":"report"}` {
		t.Errorf("unexpected arguments: %s", resp.ToolCalls[0].Arguments)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 16 {
		t.Errorf("unexpected usage: %+v", resp.Usage)
	}
}

// TestOpenAIErrorNoAPIKeyLeak verifies OpenAI errors don't contain API keys
func TestOpenAIErrorNoAPIKeyLeak(t *testing.T) {
	testKey := "sk-test-invalid-key-12345xyz"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`)
	}))
	defer srv.Close()

	provider := NewOpenAIProvider(ProviderConfig{APIKey: testKey, Model: "gpt-4o", MaxTokens: 100, BaseURL: srv.URL + "/v1"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := provider.Complete(ctx, []Turn{UserTurn("test")}, []ToolDefinition{findTasksDef})
	if err == nil {
		t.Fatal("expected error for rejected API key")
	}

	errStr := err.Error()
	if strings.Contains(errStr, testKey) {
		t.Errorf("OpenAI error message leaked API key: %v", errStr)
	}
	if strings.Contains(errStr, "Authorization:") {
		t.Errorf("OpenAI error exposed Authorization header: %v", errStr)
	}
}

func TestOpenAIEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"x","object":"chat.completion","choices":[]}`)
	}))
	defer srv.Close()

	provider := NewOpenAIProvider(ProviderConfig{APIKey: "sk", Model: "gpt-4o", BaseURL: srv.URL + "/v1"})
	if _, err := provider.Complete(context.Background(), []Turn{UserTurn("hi")}, nil); err == nil {
		t.Error("expected error for response without choices")
	}
}

// TestAnthropicErrorNoAPIKeyLeak verifies Anthropic errors don't contain API keys
func TestAnthropicErrorNoAPIKeyLeak(t *testing.T) {
	testKey := "sk-ant-REDACTED"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)
	}))
	defer srv.Close()

	provider := NewAnthropicProvider(ProviderConfig{APIKey: testKey, Model: ModelAnthropicClaudeSonnet4, MaxTokens: 100, BaseURL: srv.URL + "/"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := provider.Complete(ctx, []Turn{UserTurn("test")}, nil)
	if err == nil {
		t.Fatal("expected error for rejected API key")
	}

	errStr := err.Error()
	if strings.Contains(errStr, testKey) {
		t.Errorf("Anthropic error message leaked API key: %v", errStr)
	}
	if strings.Contains(errStr, "x-api-key:") || strings.Contains(errStr, "X-Api-Key:") {
		t.Errorf("Anthropic error exposed API key header: %v", errStr)
	}
}

func TestConvertToAnthropicMessagesGroupsToolResults(t *testing.T) {
	turns := []Turn{
		SystemTurn("system prompt"),
		UserTurn("find my tasks"),
		{
			Role: RoleAssistant,
			ToolCalls: []ToolCall{
				{ID: "toolu_1", Name: "find-tasks", Arguments: json.RawMessage(`{"searchText":"a"}`)},
				{ID: "toolu_2", Name: "find-tasks", Arguments: json.RawMessage(`{"searchText":"b"}`)},
			},
		},
		ToolResultTurn("toolu_1", `{"tasks":[]}`),
		ToolResultTurn("toolu_2", `{"tasks":[]}`),
	}

	messages, system := convertToAnthropicMessages(turns)

	if system != "system prompt" {
		t.Errorf("expected system prompt to be extracted, got %q", system)
	}
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages (user, assistant, grouped results), got %d", len(messages))
	}
	if messages[1].Role != anthropic.MessageParamRoleAssistant {
		t.Errorf("expected assistant role, got %v", messages[1].Role)
	}
	if len(messages[1].Content) != 2 {
		t.Errorf("expected 2 tool_use blocks, got %d", len(messages[1].Content))
	}
	results := messages[2]
	if results.Role != anthropic.MessageParamRoleUser {
		t.Errorf("expected tool results as user message, got %v", results.Role)
	}
	if len(results.Content) != 2 {
		t.Fatalf("expected 2 tool_result blocks in one message, got %d", len(results.Content))
	}
	if results.Content[0].OfToolResult == nil || results.Content[0].OfToolResult.ToolUseID != "toolu_1" {
		t.Errorf("first tool_result not correlated to toolu_1")
	}
	if results.Content[1].OfToolResult == nil || results.Content[1].OfToolResult.ToolUseID != "toolu_2" {
		t.Errorf("second tool_result not correlated to toolu_2")
	}
}

func TestConvertToGeminiContentsUsesFunctionName(t *testing.T) {
	turns := []Turn{
		SystemTurn("sys"),
		UserTurn("hello"),
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "find-tasks-0", Name: "find-tasks", Arguments: json.RawMessage(`{"searchText":"x"}`)}}},
		ToolResultTurn("find-tasks-0", `{"tasks":[]}`),
	}

	contents, system := convertToGeminiContents(turns)
	if system != "sys" {
		t.Errorf("expected system instruction 'sys', got %q", system)
	}
	if len(contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(contents))
	}

	call := contents[1].Parts[0].FunctionCall
	if call == nil || call.Name != "find-tasks" || call.Args["searchText"] != "x" {
		t.Errorf("unexpected function call: %+v", call)
	}

	resp := contents[2].Parts[0].FunctionResponse
	if resp == nil {
		t.Fatal("expected function response part")
	}
	if resp.Name != "find-tasks" {
		t.Errorf("expected function response name 'find-tasks', got %q", resp.Name)
	}
	if _, ok := resp.Response["tasks"]; !ok {
		t.Errorf("expected decoded tool result, got %+v", resp.Response)
	}
}

func TestConvertToGeminiSchema(t *testing.T) {
	schema := convertToGeminiSchema(findTasksDef.Parameters)

	if schema.Type != genai.TypeObject {
		t.Errorf("expected object schema, got %v", schema.Type)
	}
	limit := schema.Properties["limit"]
	if limit == nil || limit.Type != genai.TypeInteger {
		t.Fatalf("expected integer limit, got %+v", limit)
	}
	if limit.Minimum == nil || *limit.Minimum != 1 || limit.Maximum == nil || *limit.Maximum != 50 {
		t.Errorf("expected limit bounds 1..50, got %v..%v", limit.Minimum, limit.Maximum)
	}
	op := schema.Properties["labelsOperator"]
	if op == nil || len(op.Enum) != 2 {
		t.Errorf("expected enum on labelsOperator, got %+v", op)
	}
	labels := schema.Properties["labels"]
	if labels == nil || labels.Items == nil || labels.Items.Type != genai.TypeString {
		t.Errorf("expected string items on labels, got %+v", labels)
	}
}

// TestGeminiInitErrorPreserved verifies Gemini returns initialization errors
func TestGeminiInitErrorPreserved(t *testing.T) {
	provider := &GeminiProvider{model: "gemini-2.5-flash", initErr: io.ErrUnexpectedEOF}

	_, err := provider.Complete(context.Background(), []Turn{UserTurn("test")}, nil)
	if err != io.ErrUnexpectedEOF {
		t.Errorf("expected stored init error, got %v", err)
	}
}
