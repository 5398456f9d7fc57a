package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"kakehashi/internal/config"
	"kakehashi/internal/domain"
	"kakehashi/internal/domain/models"
	"kakehashi/internal/domain/repositories"
	"kakehashi/internal/domain/services"
)

// simulationService implements the SimulationService interface
type simulationService struct {
	scenarios    repositories.ScenarioRepository
	simulations  repositories.SimulationRepository
	collaborator services.Collaborator
	store        *Store
	logger       *slog.Logger
}

// NewSimulationService creates a new simulation service
func NewSimulationService(
	scenarios repositories.ScenarioRepository,
	simulations repositories.SimulationRepository,
	collaborator services.Collaborator,
	store *Store,
	logger *slog.Logger,
) services.SimulationService {
	return &simulationService{
		scenarios:    scenarios,
		simulations:  simulations,
		collaborator: collaborator,
		store:        store,
		logger:       logger,
	}
}

// ListScenarios returns every scenario.
func (s *simulationService) ListScenarios(ctx context.Context) ([]models.Scenario, error) {
	return s.scenarios.List(ctx)
}

// GetScenario returns one scenario.
func (s *simulationService) GetScenario(ctx context.Context, id string) (*models.Scenario, error) {
	return s.scenarios.GetByID(ctx, id)
}

// Start opens a session seeded with the scenario's initial student
// message. The session lives only in process memory until End.
func (s *simulationService) Start(ctx context.Context, scenarioID string) (*services.StartSessionResult, error) {
	scenario, err := s.scenarios.GetByID(ctx, scenarioID)
	if err != nil {
		return nil, err
	}

	session := s.store.Create(scenario)
	session.Transcript = append(session.Transcript, models.Turn{
		Actor:     models.ActorStudent,
		Content:   scenario.InitialMessage,
		Timestamp: session.StartedAt,
	})

	s.logger.Info("simulation started",
		"session_id", session.ID,
		"scenario_id", scenario.ID,
	)

	return &services.StartSessionResult{
		SessionID:      session.ID,
		ScenarioID:     scenario.ID,
		ScenarioTitle:  scenario.Title,
		InitialMessage: scenario.InitialMessage,
	}, nil
}

// Reply processes one teacher turn: score it against the transcript so
// far, generate the student's answer, then append both turns. The
// scoring degrade policy lives in the collaborator; any error that
// reaches this layer fails the turn with nothing appended.
func (s *simulationService) Reply(ctx context.Context, sessionID, teacherMessage string) (*services.ReplyResult, error) {
	err := validation.Validate(teacherMessage,
		validation.Required,
		validation.Length(1, config.MaxTeacherMessageLength),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: message: %v", domain.ErrValidation, err)
	}

	session, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	session.Lock()
	defer session.Unlock()
	// The session may have been ended or evicted between Get and Lock.
	if !s.store.Active(session) {
		return nil, fmt.Errorf("session %s not found or expired: %w", sessionID, domain.ErrNotFound)
	}

	scores, err := s.collaborator.ScoreTeacherMessage(ctx, session.Scenario, session.Transcript, teacherMessage)
	if err != nil {
		return nil, err
	}

	studentReply, err := s.collaborator.StudentReply(ctx, session.Scenario, session.Transcript, teacherMessage)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session.Transcript = append(session.Transcript,
		models.Turn{
			Actor:     models.ActorTeacher,
			Content:   teacherMessage,
			Timestamp: now,
			Scores:    &scores,
		},
		models.Turn{
			Actor:     models.ActorStudent,
			Content:   studentReply,
			Timestamp: now,
		},
	)
	session.Scores = append(session.Scores, scores)

	return &services.ReplyResult{
		Scores:       scores,
		StudentReply: studentReply,
		TurnNumber:   len(session.Scores),
	}, nil
}

// End finalizes a session: computes floor-division averages, asks the
// collaborator for feedback, persists the one durable record, and
// removes the session. A session with no teacher turns has nothing to
// summarize and fails validation.
func (s *simulationService) End(ctx context.Context, sessionID, userID string) (*services.EndSessionResult, error) {
	session, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	session.Lock()
	defer session.Unlock()
	if !s.store.Active(session) {
		return nil, fmt.Errorf("session %s not found or expired: %w", sessionID, domain.ErrNotFound)
	}

	if len(session.Scores) == 0 {
		return nil, fmt.Errorf("%w: no conversation turns to evaluate", domain.ErrValidation)
	}

	var sum models.ScoreBreakdown
	for _, sc := range session.Scores {
		sum.Sincerity += sc.Sincerity
		sum.Appropriateness += sc.Appropriateness
		sum.Relevance += sc.Relevance
	}
	n := len(session.Scores)
	averages := models.ScoreBreakdown{
		Sincerity:       sum.Sincerity / n,
		Appropriateness: sum.Appropriateness / n,
		Relevance:       sum.Relevance / n,
	}
	overall := (averages.Sincerity + averages.Appropriateness + averages.Relevance) / 3

	completedAt := time.Now()
	duration := int(completedAt.Sub(session.StartedAt).Seconds())

	feedback, err := s.collaborator.SessionFeedback(ctx, session.Scenario, session.Transcript, session.Scores)
	if err != nil {
		return nil, err
	}

	record := &models.SimulationRecord{
		UserID:       userID,
		ScenarioID:   session.Scenario.ID,
		Transcript:   session.Transcript,
		OverallScore: overall,
		Feedback:     feedback.Summary,
		StartedAt:    session.StartedAt,
		CompletedAt:  completedAt,
		DurationSecs: duration,
	}
	if err := s.simulations.Create(ctx, record); err != nil {
		return nil, err
	}

	s.store.Remove(sessionID)

	s.logger.Info("simulation ended",
		"session_id", sessionID,
		"record_id", record.ID,
		"overall_score", overall,
		"turns", n,
	)

	return &services.EndSessionResult{
		AverageScores:   averages,
		TotalTurns:      n,
		DurationSeconds: duration,
		Feedback:        feedback,
	}, nil
}

// Inspect returns the live transcript of an active session.
func (s *simulationService) Inspect(_ context.Context, sessionID string) (*services.SessionState, error) {
	session, err := s.store.Get(sessionID)
	if err != nil {
		return nil, err
	}

	session.Lock()
	defer session.Unlock()
	if !s.store.Active(session) {
		return nil, fmt.Errorf("session %s not found or expired: %w", sessionID, domain.ErrNotFound)
	}

	transcript := make([]models.Turn, len(session.Transcript))
	copy(transcript, session.Transcript)

	return &services.SessionState{
		SessionID:     session.ID,
		ScenarioID:    session.Scenario.ID,
		ScenarioTitle: session.Scenario.Title,
		Transcript:    transcript,
		Status:        "active",
		StartedAt:     session.StartedAt,
	}, nil
}

// History lists completed sessions newest first, resolving scenario
// titles in a second pass.
func (s *simulationService) History(ctx context.Context, limit, offset int) (*services.HistoryPage, error) {
	if limit < 1 {
		limit = config.DefaultHistoryPageLimit
	}
	if limit > config.MaxHistoryPageLimit {
		limit = config.MaxHistoryPageLimit
	}
	if offset < 0 {
		offset = 0
	}

	records, total, err := s.simulations.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	titles := s.scenarioTitles(ctx, records)

	items := make([]services.HistoryItem, 0, len(records))
	for _, record := range records {
		items = append(items, services.HistoryItem{
			SessionID:       record.ID,
			ScenarioID:      record.ScenarioID,
			ScenarioTitle:   titles[record.ScenarioID],
			OverallScore:    record.OverallScore,
			TotalTurns:      record.TeacherTurns(),
			DurationSeconds: record.DurationSecs,
			FeedbackSummary: record.Feedback,
			CompletedAt:     record.CompletedAt,
		})
	}

	return &services.HistoryPage{Sessions: items, Total: total}, nil
}

// HistoryDetail returns the stored transcript of a completed session.
func (s *simulationService) HistoryDetail(ctx context.Context, recordID string) (*services.SessionState, error) {
	record, err := s.simulations.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}

	title := ""
	if scenario, err := s.scenarios.GetByID(ctx, record.ScenarioID); err == nil {
		title = scenario.Title
	}

	completedAt := record.CompletedAt
	return &services.SessionState{
		SessionID:     record.ID,
		ScenarioID:    record.ScenarioID,
		ScenarioTitle: title,
		Transcript:    record.Transcript,
		Status:        "completed",
		StartedAt:     record.StartedAt,
		CompletedAt:   &completedAt,
	}, nil
}

// scenarioTitles resolves the scenario title of each record; a deleted
// scenario simply yields an empty title.
func (s *simulationService) scenarioTitles(ctx context.Context, records []models.SimulationRecord) map[string]string {
	titles := make(map[string]string)
	for _, record := range records {
		if _, done := titles[record.ScenarioID]; done {
			continue
		}
		scenario, err := s.scenarios.GetByID(ctx, record.ScenarioID)
		if err != nil {
			titles[record.ScenarioID] = ""
			continue
		}
		titles[record.ScenarioID] = scenario.Title
	}
	return titles
}
