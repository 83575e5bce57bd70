// Package timeout defines the shared deadlines for external AI and
// retrieval calls.
package timeout

import "time"

const (
	// Embedding is the deadline for one embedding API call.
	Embedding = 30 * time.Second

	// Search is the deadline for a full retrieval pipeline run, covering
	// every fan-out sub-call.
	Search = 20 * time.Second

	// Answer is the deadline for a chat completion that generates the
	// final answer.
	Answer = 2 * time.Minute
)
