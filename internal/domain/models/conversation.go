package models

import "time"

// Transcript actors.
const (
	ActorTeacher = "teacher"
	ActorStudent = "student"
)

// Scenario is an immutable conversation-practice setup. The initial
// message is always spoken by the simulated student.
type Scenario struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Difficulty     string    `json:"difficulty"` // easy, medium, hard
	Category       string    `json:"category"`   // classroom, academic, personal
	InitialMessage string    `json:"initial_message"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ScoreBreakdown is the three-axis evaluation of a single teacher turn.
// Each axis is clamped to [0,100].
type ScoreBreakdown struct {
	Sincerity       int `json:"sincerity"`
	Appropriateness int `json:"appropriateness"`
	Relevance       int `json:"relevance"`
}

// Turn is one transcript entry. Scores is set only on teacher turns.
type Turn struct {
	Actor     string          `json:"role"`
	Content   string          `json:"content"`
	Timestamp time.Time       `json:"timestamp"`
	Scores    *ScoreBreakdown `json:"scores,omitempty"`
}

// SessionFeedback is the end-of-session summary produced by the
// feedback collaborator.
type SessionFeedback struct {
	Summary      string   `json:"summary"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	Suggestions  []string `json:"suggestions"`
}

// SimulationRecord is the durable result of an ended session. Active
// sessions live only in process memory; exactly one record is written
// when a session ends.
type SimulationRecord struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	ScenarioID    string    `json:"scenario_id"`
	Transcript    []Turn    `json:"transcript"`
	OverallScore  int       `json:"overall_score"`
	Feedback      string    `json:"feedback"`
	StartedAt     time.Time `json:"started_at"`
	CompletedAt   time.Time `json:"completed_at"`
	DurationSecs  int       `json:"duration_seconds"`
	ScenarioTitle string    `json:"scenario_title,omitempty"` // filled per request
}

// TeacherTurns counts the scored teacher turns in the transcript.
func (r *SimulationRecord) TeacherTurns() int {
	n := 0
	for _, t := range r.Transcript {
		if t.Actor == ActorTeacher {
			n++
		}
	}
	return n
}
