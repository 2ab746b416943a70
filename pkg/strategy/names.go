package strategy

import "time"

// Name identifies an execution strategy.
type Name string

// Known strategies, most capable first.
const (
	SubAgents  Name = "subAgents"
	Parallel   Name = "parallel"
	Streaming  Name = "streaming"
	Batched    Name = "batched"
	Sequential Name = "sequential"
)

// DefaultOrder is the fallback chain used when no order is configured.
func DefaultOrder() []Name {
	return []Name{SubAgents, Parallel, Streaming, Batched, Sequential}
}

// DefaultTimeouts returns the per-strategy time limits.
func DefaultTimeouts() map[Name]time.Duration {
	return map[Name]time.Duration{
		SubAgents:  300 * time.Second,
		Parallel:   180 * time.Second,
		Streaming:  120 * time.Second,
		Batched:    90 * time.Second,
		Sequential: 60 * time.Second,
	}
}

// Valid reports whether n names a known strategy.
func (n Name) Valid() bool {
	switch n {
	case SubAgents, Parallel, Streaming, Batched, Sequential:
		return true
	}
	return false
}

func (n Name) String() string { return string(n) }
