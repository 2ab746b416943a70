package task

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// File is the on-disk shape accepted by Load: a single task or a list.
type File struct {
	Tasks []*Task `yaml:"tasks"`
}

// Load reads one or more tasks from a YAML file. Tasks without an ID are
// assigned a random one.
func Load(path string) ([]*Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes tasks from YAML bytes.
func Parse(data []byte) ([]*Task, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse tasks: %w", err)
	}

	tasks := file.Tasks
	if len(tasks) == 0 {
		var single Task
		if err := yaml.Unmarshal(data, &single); err != nil {
			return nil, fmt.Errorf("parse task: %w", err)
		}
		if single.Description == "" && single.Type == "" {
			return nil, fmt.Errorf("no tasks found")
		}
		tasks = []*Task{&single}
	}

	for i, t := range tasks {
		if t == nil {
			return nil, fmt.Errorf("task %d is empty", i)
		}
		EnsureID(t)
	}
	return tasks, nil
}

// EnsureID assigns a random ID to t when it has none.
func EnsureID(t *Task) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
}
