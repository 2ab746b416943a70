package router

import (
	"time"

	"github.com/zen-systems/taskgate/pkg/adapter"
	"github.com/zen-systems/taskgate/pkg/capability"
	"github.com/zen-systems/taskgate/pkg/strategy"
)

// Candidate is one ranked adapter version considered for a decision.
type Candidate struct {
	Adapter   string  `json:"adapter"`
	Version   string  `json:"version"`
	Score     float64 `json:"score"`
	Qualified bool    `json:"qualified"`
}

// Decision is the outcome of routing a task. Cached decisions are shared
// between structurally similar tasks and must not be modified.
type Decision struct {
	ID             string                  `json:"id"`
	TaskID         string                  `json:"taskId"`
	Adapter        adapter.Adapter         `json:"-"`
	AdapterName    string                  `json:"adapter"`
	AdapterVersion string                  `json:"version"`
	Strategy       strategy.Name           `json:"strategy"`
	Requirements   capability.Requirements `json:"requirements"`
	Score          float64                 `json:"score"`
	Candidates     []Candidate             `json:"candidates,omitempty"`
	Timestamp      time.Time               `json:"timestamp"`
}
