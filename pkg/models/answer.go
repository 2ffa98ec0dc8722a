package models

// Stage is a step of the question pipeline, recorded in order on the debug trace.
type Stage string

const (
	StageReceived    Stage = "received"
	StageTranslating Stage = "translating"
	StageNoStatement Stage = "no_statement"
	StageTranslated  Stage = "translated"
	StageExecuting   Stage = "executing"
	StageExecFailed  Stage = "exec_failed"
	StageExecEmpty   Stage = "exec_empty"
	StageExecSuccess Stage = "exec_success"
	StageNarrating   Stage = "narrating"
	StageAnswered    Stage = "answered"
)

// Outcome names which branch produced the final answer text.
type Outcome string

const (
	OutcomeAnswered          Outcome = "answered"
	OutcomeGreeting          Outcome = "greeting"
	OutcomeIdentity          Outcome = "identity"
	OutcomeNotConfigured     Outcome = "not_configured"
	OutcomeNotReady          Outcome = "not_ready"
	OutcomeOffTopic          Outcome = "off_topic"
	OutcomePassthrough       Outcome = "passthrough"
	OutcomeEmptyResult       Outcome = "empty_result"
	OutcomeUnknownIdentifier Outcome = "unknown_identifier"
	OutcomeFallback          Outcome = "fallback"
)

// Answer is what the pipeline hands back for every question. Text is always
// safe to show to an end user.
type Answer struct {
	Text    string       `json:"answer"`
	Outcome Outcome      `json:"outcome"`
	Debug   *AnswerDebug `json:"debug,omitempty"`
}

// AnswerDebug carries raw diagnostics for administrators.
type AnswerDebug struct {
	Trace              []Stage             `json:"trace"`
	Statement          string              `json:"statement,omitempty"`
	RawResponse        string              `json:"raw_response,omitempty"`
	Error              string              `json:"error,omitempty"`
	FailureKind        FailureKind         `json:"failure_kind,omitempty"`
	RowCount           int                 `json:"row_count"`
	SchemaDigest       map[string][]string `json:"schema_digest,omitempty"`
	SnapshotGeneration uint64              `json:"snapshot_generation,omitempty"`
	ElapsedMS          int64               `json:"elapsed_ms"`
}

// Public returns a copy of the answer without debug detail.
func (a *Answer) Public() *Answer {
	return &Answer{Text: a.Text, Outcome: a.Outcome}
}
