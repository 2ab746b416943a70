package adapter

import (
	"fmt"
	"strings"

	"github.com/zen-systems/taskgate/pkg/task"
)

// RenderPrompt turns a task into a single prompt for text-generation backends.
func RenderPrompt(t *task.Task) string {
	var sb strings.Builder
	if t.Role != "" {
		sb.WriteString(fmt.Sprintf("You are acting as the %s for this task.\n\n", t.Role))
	}
	if t.Type != "" {
		sb.WriteString(fmt.Sprintf("Task type: %s\n", t.Type))
	}
	sb.WriteString("Task:\n")
	sb.WriteString(t.Description)
	sb.WriteString("\n")

	if files := t.Files(); len(files) > 0 {
		sb.WriteString("\nFiles in scope:\n")
		for _, f := range files {
			sb.WriteString(fmt.Sprintf("- %s\n", f))
		}
	}
	if content := t.Content(); content != "" {
		sb.WriteString("\nContext:\n")
		sb.WriteString(content)
		sb.WriteString("\n")
	}
	return sb.String()
}

// textResult wraps generated text into a completed result.
func textResult(t *task.Task, adapterName, model, content string) *task.Result {
	res := &task.Result{
		TaskID: t.ID,
		Status: task.StatusCompleted,
		Output: content,
	}
	res.SetMeta("model", model)
	res.SetMeta("adapter", adapterName)
	return res
}
