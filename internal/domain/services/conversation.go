package services

import (
	"context"
	"time"

	"kakehashi/internal/domain/models"
)

// Collaborator is the external text-generation contract. All three call
// shapes receive the scenario and transcript so far; implementations own
// prompt construction, response parsing, and the degrade policies for
// structured output.
type Collaborator interface {
	// StudentReply generates the simulated student's next line, normalized
	// to begin with the student speaker marker. A malformed response here
	// has no safe fallback and is reported as a collaborator fault.
	StudentReply(ctx context.Context, scenario *models.Scenario, transcript []models.Turn, teacherMessage string) (string, error)
	// ScoreTeacherMessage evaluates a teacher turn on the three axes, each
	// clamped to [0,100]. A parse failure of the structured output degrades
	// to the fixed neutral fallback rather than failing the request.
	ScoreTeacherMessage(ctx context.Context, scenario *models.Scenario, transcript []models.Turn, teacherMessage string) (models.ScoreBreakdown, error)
	// SessionFeedback summarizes an ended session. A parse failure degrades
	// to a fixed generic feedback structure.
	SessionFeedback(ctx context.Context, scenario *models.Scenario, transcript []models.Turn, scores []models.ScoreBreakdown) (models.SessionFeedback, error)
}

// StartSessionResult is returned when a session is created.
type StartSessionResult struct {
	SessionID      string `json:"session_id"`
	ScenarioID     string `json:"scenario_id"`
	ScenarioTitle  string `json:"scenario_title"`
	InitialMessage string `json:"initial_message"`
}

// ReplyResult is returned for each teacher turn.
type ReplyResult struct {
	Scores       models.ScoreBreakdown `json:"scores"`
	StudentReply string                `json:"student_reply"`
	TurnNumber   int                   `json:"turn_number"` // 1-indexed count of teacher turns
}

// EndSessionResult is returned when a session is finalized.
type EndSessionResult struct {
	AverageScores   models.ScoreBreakdown  `json:"average_scores"`
	TotalTurns      int                    `json:"total_turns"`
	DurationSeconds int                    `json:"duration_seconds"`
	Feedback        models.SessionFeedback `json:"feedback"`
}

// SessionState is the read-only projection of a session's transcript.
type SessionState struct {
	SessionID     string        `json:"session_id"`
	ScenarioID    string        `json:"scenario_id"`
	ScenarioTitle string        `json:"scenario_title"`
	Transcript    []models.Turn `json:"messages"`
	Status        string        `json:"status"` // active or completed
	StartedAt     time.Time     `json:"started_at"`
	CompletedAt   *time.Time    `json:"completed_at"`
}

// HistoryItem is one completed session in the history listing.
type HistoryItem struct {
	SessionID       string    `json:"session_id"`
	ScenarioID      string    `json:"scenario_id"`
	ScenarioTitle   string    `json:"scenario_title"`
	OverallScore    int       `json:"overall_score"`
	TotalTurns      int       `json:"total_turns"`
	DurationSeconds int       `json:"duration_seconds"`
	FeedbackSummary string    `json:"feedback_summary"`
	CompletedAt     time.Time `json:"completed_at"`
}

// HistoryPage is one page of completed sessions, newest first.
type HistoryPage struct {
	Sessions []HistoryItem `json:"sessions"`
	Total    int           `json:"total"`
}

// SimulationService drives conversation-practice sessions. Sessions are
// process-local until End commits a durable record.
type SimulationService interface {
	ListScenarios(ctx context.Context) ([]models.Scenario, error)
	GetScenario(ctx context.Context, id string) (*models.Scenario, error)

	Start(ctx context.Context, scenarioID string) (*StartSessionResult, error)
	Reply(ctx context.Context, sessionID, teacherMessage string) (*ReplyResult, error)
	End(ctx context.Context, sessionID, userID string) (*EndSessionResult, error)
	// Inspect returns the live transcript of an active session. No ownership
	// check ties a session to the caller who started it; preserved as
	// documented behavior.
	Inspect(ctx context.Context, sessionID string) (*SessionState, error)

	History(ctx context.Context, limit, offset int) (*HistoryPage, error)
	HistoryDetail(ctx context.Context, recordID string) (*SessionState, error)
}
