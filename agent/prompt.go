package agent

import (
	"fmt"
	"time"
)

// DateLayout formats the current date in the system turn.
const DateLayout = "Monday, January 2, 2006"

// DefaultSystemPrompt is the task assistant persona.
const DefaultSystemPrompt = `You are a helpful Todoist assistant. You can help users search and find their tasks.

You have access to the find-tasks tool which allows you to:
- Search for tasks by content/keywords
- Filter tasks by labels
- Filter tasks by project ID
- Filter tasks by section ID
- Filter tasks by parent task ID
- Find tasks assigned to specific users

Be conversational, friendly, and helpful in assisting users to find their tasks.`

func (a *Agent) systemPrompt(now time.Time) string {
	return fmt.Sprintf("%s\n\nCurrent date: %s\n\nAvailable Tools:\n%s",
		a.config.SystemPrompt,
		now.Format(DateLayout),
		a.registry.Description(),
	)
}
