package result

// Error represents a validation or generation error.
type Error struct {
	Type       string `json:"type"`
	Severity   string `json:"severity"`
	NodeID     string `json:"node_id,omitempty"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Warning represents a best-practice or non-fatal warning.
type Warning struct {
	Type       string `json:"type"`
	Severity   string `json:"severity"`
	NodeID     string `json:"node_id,omitempty"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// GenerateResult is the result of generating Terraform from a diagram.
type GenerateResult struct {
	Success        bool              `json:"success"`
	TerraformFiles map[string][]byte `json:"-"` // filename -> content
	Errors         []Error           `json:"errors,omitempty"`
	Warnings       []Warning         `json:"warnings,omitempty"`
}

// Level classifies a user notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	// LevelCanceled is a user-initiated abort; it is not reported as a failure.
	LevelCanceled Level = "canceled"
)

// Notification is the blocking message shown to the user after an
// editor operation, naming the operation it belongs to.
type Notification struct {
	Operation string `json:"operation"`
	Level     Level  `json:"level"`
	Message   string `json:"message"`
}

// OK reports whether the operation succeeded.
func (n Notification) OK() bool { return n.Level == LevelSuccess }
