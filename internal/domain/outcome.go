package domain

import "fmt"

// OutcomeStatus classifies the result of one tool call. Only OutcomeError is
// a hard failure; duplicate/multiple/missing are conversational branch
// points that require a follow-up message from the caller.
type OutcomeStatus string

const (
	OutcomeSuccess     OutcomeStatus = "success"
	OutcomeDuplicate   OutcomeStatus = "duplicate_found"
	OutcomeMultiple    OutcomeStatus = "multiple_matches"
	OutcomeMissingData OutcomeStatus = "missing_data"
	OutcomeError       OutcomeStatus = "error"
)

// ToolOutcome is the structured result of executing one tool call. Message
// is always user-presentable Spanish; Data carries the record payload or the
// candidate list for the model's second round.
type ToolOutcome struct {
	Status  OutcomeStatus  `json:"status"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
	Write   bool           `json:"-"` // whether the call committed a write
}

func Success(msg string, data map[string]any) *ToolOutcome {
	return &ToolOutcome{Status: OutcomeSuccess, Message: msg, Data: data}
}

// Written marks the outcome as a committed write and returns it.
func (o *ToolOutcome) Written() *ToolOutcome {
	o.Write = true
	return o
}

func Errorf(format string, args ...any) *ToolOutcome {
	return &ToolOutcome{Status: OutcomeError, Message: fmt.Sprintf(format, args...)}
}

func Duplicate(msg string, data map[string]any) *ToolOutcome {
	return &ToolOutcome{Status: OutcomeDuplicate, Message: msg, Data: data}
}

func Multiple(msg string, data map[string]any) *ToolOutcome {
	return &ToolOutcome{Status: OutcomeMultiple, Message: msg, Data: data}
}

func MissingData(msg string) *ToolOutcome {
	return &ToolOutcome{Status: OutcomeMissingData, Message: msg}
}

// IsBranch reports whether the outcome is a conversational branch point
// (needs a narrowing or confirming follow-up, but is not an error).
func (o *ToolOutcome) IsBranch() bool {
	switch o.Status {
	case OutcomeDuplicate, OutcomeMultiple, OutcomeMissingData:
		return true
	}
	return false
}
