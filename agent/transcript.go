package agent

import (
	"github.com/richinex/taskchat/storage"
)

// NewTranscript converts a finished exchange into a log record.
func NewTranscript(message string, resp Response, err error) storage.Transcript {
	t := storage.NewTranscript(message)
	t.Answer = resp.Text
	t.Provider = resp.Metadata.Provider
	t.Model = resp.Metadata.Model
	t.ProviderCalls = resp.Metadata.ProviderCalls
	t.ToolCalls = resp.Metadata.ToolCalls
	t.Usage = resp.Metadata.TokenUsage
	t.DurationMs = resp.Metadata.DurationMs
	if err != nil {
		t.Error = err.Error()
	}
	return t
}
