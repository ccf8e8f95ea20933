// Google Gemini Provider implementation using official google.golang.org/genai SDK.
//
// Information Hiding:
// - API authentication and client creation
// - Request/response format for Gemini API
// - System instruction handling via config
// - Function call/response correlation by ID and name

package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"
)

// GeminiProvider implements the Provider interface for Google Gemini.
type GeminiProvider struct {
	client      *genai.Client
	model       string
	maxTokens   int32
	temperature float32
	initErr     error // Stores client initialization error for deferred reporting
}

// NewGeminiProvider creates a new Gemini provider.
// If client initialization fails, the error is stored and returned on first use.
func NewGeminiProvider(cfg ProviderConfig) *GeminiProvider {
	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	p := &GeminiProvider{
		model:       cfg.Model,
		maxTokens:   int32(cfg.MaxTokens),
		temperature: cfg.Temperature,
	}

	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		p.initErr = fmt.Errorf("failed to initialize Gemini client: %w", err)
		return p
	}
	p.client = client
	return p
}

// Name returns the provider name.
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Model returns the current model.
func (p *GeminiProvider) Model() string {
	return p.model
}

// Complete sends a generate-content request with tool definitions.
func (p *GeminiProvider) Complete(ctx context.Context, turns []Turn, tools []ToolDefinition) (Response, error) {
	if p.initErr != nil {
		return Response{}, p.initErr
	}
	if p.client == nil {
		return Response{}, fmt.Errorf("gemini client not initialized")
	}

	contents, systemInstruction := convertToGeminiContents(turns)

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(p.temperature),
		MaxOutputTokens: p.maxTokens,
		Tools:           convertToGeminiTools(tools),
	}

	if systemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(systemInstruction, genai.RoleUser)
	}

	response, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return Response{}, fmt.Errorf("chat completion failed: %w", err)
	}

	content := ""
	var toolCalls []ToolCall

	if len(response.Candidates) > 0 && response.Candidates[0].Content != nil {
		for i, part := range response.Candidates[0].Content.Parts {
			if part.Text != "" {
				content += part.Text
			}
			if part.FunctionCall != nil {
				argsJSON, err := json.Marshal(part.FunctionCall.Args)
				if err != nil {
					return Response{}, fmt.Errorf("function call %s: invalid args: %w", part.FunctionCall.Name, err)
				}
				id := part.FunctionCall.ID
				if id == "" {
					// Gemini may omit IDs; derive one that is unique within the turn.
					id = fmt.Sprintf("%s-%d", part.FunctionCall.Name, i)
				}
				toolCalls = append(toolCalls, ToolCall{
					ID:        id,
					Name:      part.FunctionCall.Name,
					Arguments: argsJSON,
				})
			}
		}
	}

	var usage *TokenUsage
	if response.UsageMetadata != nil {
		usage = &TokenUsage{
			PromptTokens:     uint32(response.UsageMetadata.PromptTokenCount),
			CompletionTokens: uint32(response.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      uint32(response.UsageMetadata.TotalTokenCount),
		}
	}

	return Response{Content: content, ToolCalls: toolCalls, Usage: usage}, nil
}

// convertToGeminiContents converts turns to Gemini contents.
// Extracts the system instruction and returns it separately. Tool results
// are sent back under the function name of the call they answer.
func convertToGeminiContents(turns []Turn) ([]*genai.Content, string) {
	var contents []*genai.Content
	var systemInstruction string
	callNames := make(map[string]string)

	for _, turn := range turns {
		switch turn.Role {
		case RoleSystem:
			systemInstruction = turn.Content
		case RoleUser:
			contents = append(contents, genai.NewContentFromText(turn.Content, genai.RoleUser))
		case RoleAssistant:
			if len(turn.ToolCalls) == 0 {
				contents = append(contents, genai.NewContentFromText(turn.Content, genai.RoleModel))
				continue
			}
			content := &genai.Content{Role: genai.RoleModel}
			if turn.Content != "" {
				content.Parts = append(content.Parts, &genai.Part{Text: turn.Content})
			}
			for _, tc := range turn.ToolCalls {
				callNames[tc.ID] = tc.Name
				var args map[string]any
				_ = json.Unmarshal(tc.Arguments, &args)
				content.Parts = append(content.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						ID:   tc.ID,
						Name: tc.Name,
						Args: args,
					},
				})
			}
			contents = append(contents, content)
		case RoleTool:
			var result map[string]any
			_ = json.Unmarshal([]byte(turn.Content), &result)
			if result == nil {
				result = map[string]any{"result": turn.Content}
			}
			name := callNames[turn.ToolCallID]
			if name == "" {
				name = turn.ToolCallID
			}
			contents = append(contents, &genai.Content{
				Role: genai.RoleUser, // Gemini expects tool results as user
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						ID:       turn.ToolCallID,
						Name:     name,
						Response: result,
					},
				}},
			})
		}
	}

	return contents, systemInstruction
}

// convertToGeminiTools converts tool definitions to Gemini format.
func convertToGeminiTools(tools []ToolDefinition) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}

	var declarations []*genai.FunctionDeclaration
	for _, t := range tools {
		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  convertToGeminiSchema(t.Parameters),
		})
	}

	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

// convertToGeminiSchema recursively converts a JSON schema map to Gemini format.
// Arrays always get an 'items' schema, which Gemini requires.
func convertToGeminiSchema(params map[string]interface{}) *genai.Schema {
	schema := &genai.Schema{Type: genai.TypeObject}

	if t, ok := params["type"].(string); ok {
		schema.Type = mapToGeminiType(t)
	}
	if d, ok := params["description"].(string); ok {
		schema.Description = d
	}
	if enum, ok := params["enum"].([]string); ok {
		schema.Enum = enum
	}
	if min, ok := toFloat(params["minimum"]); ok {
		schema.Minimum = genai.Ptr(min)
	}
	if max, ok := toFloat(params["maximum"]); ok {
		schema.Maximum = genai.Ptr(max)
	}
	if req, ok := params["required"].([]string); ok && len(req) > 0 {
		schema.Required = req
	}

	switch schema.Type {
	case genai.TypeArray:
		if items, ok := params["items"].(map[string]interface{}); ok {
			schema.Items = convertToGeminiSchema(items)
		} else {
			schema.Items = &genai.Schema{Type: genai.TypeString}
		}
	case genai.TypeObject:
		if props, ok := params["properties"].(map[string]interface{}); ok {
			schema.Properties = make(map[string]*genai.Schema, len(props))
			for name, prop := range props {
				if propMap, ok := prop.(map[string]interface{}); ok {
					schema.Properties[name] = convertToGeminiSchema(propMap)
				}
			}
		}
	}

	return schema
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// mapToGeminiType maps JSON schema type to Gemini type.
func mapToGeminiType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

// Verify GeminiProvider implements Provider
var _ Provider = (*GeminiProvider)(nil)
