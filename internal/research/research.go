// Package research defines the structured output of a completed job and the
// tolerant formatter that produces it from raw pipeline text.
package research

// Finding is one labeled discovery within a result.
type Finding struct {
	Label       string `json:"label"`
	Description string `json:"description"`
}

// Result is the structured, user-facing output of a completed research job.
// Never mutated after creation; owned by the job store once attached.
type Result struct {
	Topic    string    `json:"topic"`
	Findings []Finding `json:"findings"`
	Summary  string    `json:"summary"`
}
