package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"kakehashi/internal/domain"
	"kakehashi/internal/domain/models"
	"kakehashi/internal/domain/services"
)

// fakeScenarioRepo is an in-memory ScenarioRepository.
type fakeScenarioRepo struct {
	scenarios map[string]models.Scenario
}

func newFakeScenarioRepo(scenarios ...models.Scenario) *fakeScenarioRepo {
	r := &fakeScenarioRepo{scenarios: make(map[string]models.Scenario)}
	for _, s := range scenarios {
		r.scenarios[s.ID] = s
	}
	return r
}

func (r *fakeScenarioRepo) Create(_ context.Context, scenario *models.Scenario) error {
	scenario.ID = fmt.Sprintf("scn-%d", len(r.scenarios)+1)
	r.scenarios[scenario.ID] = *scenario
	return nil
}

func (r *fakeScenarioRepo) GetByID(_ context.Context, id string) (*models.Scenario, error) {
	scenario, ok := r.scenarios[id]
	if !ok {
		return nil, fmt.Errorf("scenario %s: %w", id, domain.ErrNotFound)
	}
	return &scenario, nil
}

func (r *fakeScenarioRepo) List(_ context.Context) ([]models.Scenario, error) {
	var out []models.Scenario
	for _, s := range r.scenarios {
		out = append(out, s)
	}
	return out, nil
}

func (r *fakeScenarioRepo) Count(_ context.Context) (int, error) {
	return len(r.scenarios), nil
}

// fakeSimulationRepo is an in-memory SimulationRepository.
type fakeSimulationRepo struct {
	records []models.SimulationRecord
}

func (r *fakeSimulationRepo) Create(_ context.Context, record *models.SimulationRecord) error {
	record.ID = fmt.Sprintf("sim-%d", len(r.records)+1)
	r.records = append(r.records, *record)
	return nil
}

func (r *fakeSimulationRepo) GetByID(_ context.Context, id string) (*models.SimulationRecord, error) {
	for _, record := range r.records {
		if record.ID == id {
			return &record, nil
		}
	}
	return nil, fmt.Errorf("simulation %s: %w", id, domain.ErrNotFound)
}

func (r *fakeSimulationRepo) List(_ context.Context, limit, offset int) ([]models.SimulationRecord, int, error) {
	total := len(r.records)
	// Newest first.
	reversed := make([]models.SimulationRecord, 0, total)
	for i := total - 1; i >= 0; i-- {
		reversed = append(reversed, r.records[i])
	}
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return reversed[offset:end], total, nil
}

// scriptedCollaborator returns canned scores and replies.
type scriptedCollaborator struct {
	scores   []models.ScoreBreakdown
	reply    string
	feedback models.SessionFeedback
	err      error
	calls    int
}

func (c *scriptedCollaborator) StudentReply(context.Context, *models.Scenario, []models.Turn, string) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	return c.reply, nil
}

func (c *scriptedCollaborator) ScoreTeacherMessage(context.Context, *models.Scenario, []models.Turn, string) (models.ScoreBreakdown, error) {
	if c.err != nil {
		return models.ScoreBreakdown{}, c.err
	}
	score := c.scores[c.calls%len(c.scores)]
	c.calls++
	return score, nil
}

func (c *scriptedCollaborator) SessionFeedback(context.Context, *models.Scenario, []models.Turn, []models.ScoreBreakdown) (models.SessionFeedback, error) {
	if c.err != nil {
		return models.SessionFeedback{}, c.err
	}
	return c.feedback, nil
}

func newSimulationFixture(collab services.Collaborator) (services.SimulationService, *Store, *fakeSimulationRepo) {
	scenarios := newFakeScenarioRepo(models.Scenario{
		ID:             "scn-1",
		Title:          "授業に遅刻した理由を伝える練習",
		Difficulty:     "easy",
		Category:       "classroom",
		InitialMessage: "生徒: 先生…すみません。",
	})
	simulations := &fakeSimulationRepo{}
	store := NewStore(time.Hour, testLogger())
	svc := NewSimulationService(scenarios, simulations, collab, store, testLogger())
	return svc, store, simulations
}

func defaultCollaborator() *scriptedCollaborator {
	return &scriptedCollaborator{
		scores: []models.ScoreBreakdown{
			{Sincerity: 80, Appropriateness: 70, Relevance: 90},
			{Sincerity: 71, Appropriateness: 75, Relevance: 80},
		},
		reply: "学生: ありがとうございます。",
		feedback: models.SessionFeedback{
			Summary:      "落ち着いた対応でした。",
			Strengths:    []string{"傾聴"},
			Improvements: []string{"具体性"},
			Suggestions:  []string{"共感の言葉"},
		},
	}
}

func TestStartSeedsInitialMessage(t *testing.T) {
	svc, store, _ := newSimulationFixture(defaultCollaborator())
	defer store.Close()

	result, err := svc.Start(context.Background(), "scn-1")
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if result.SessionID == "" || result.InitialMessage != "生徒: 先生…すみません。" {
		t.Errorf("start result = %+v", result)
	}

	state, err := svc.Inspect(context.Background(), result.SessionID)
	if err != nil {
		t.Fatalf("Inspect returned error: %v", err)
	}
	if len(state.Transcript) != 1 {
		t.Fatalf("transcript length = %d, want 1", len(state.Transcript))
	}
	first := state.Transcript[0]
	if first.Actor != models.ActorStudent || first.Content != result.InitialMessage || first.Scores != nil {
		t.Errorf("seed turn = %+v", first)
	}
	if state.Status != "active" {
		t.Errorf("status = %q, want active", state.Status)
	}
}

func TestStartUnknownScenario(t *testing.T) {
	svc, store, _ := newSimulationFixture(defaultCollaborator())
	defer store.Close()

	_, err := svc.Start(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestReplyAppendsTurnPair(t *testing.T) {
	svc, store, _ := newSimulationFixture(defaultCollaborator())
	defer store.Close()

	started, _ := svc.Start(context.Background(), "scn-1")

	result, err := svc.Reply(context.Background(), started.SessionID, "どうしたの？ゆっくり話していいよ。")
	if err != nil {
		t.Fatalf("Reply returned error: %v", err)
	}
	if result.TurnNumber != 1 {
		t.Errorf("turn number = %d, want 1", result.TurnNumber)
	}
	if result.Scores != (models.ScoreBreakdown{Sincerity: 80, Appropriateness: 70, Relevance: 90}) {
		t.Errorf("scores = %+v", result.Scores)
	}
	if !strings.HasPrefix(result.StudentReply, "学生:") {
		t.Errorf("student reply = %q", result.StudentReply)
	}

	state, _ := svc.Inspect(context.Background(), started.SessionID)
	if len(state.Transcript) != 3 {
		t.Fatalf("transcript length = %d, want 3", len(state.Transcript))
	}
	teacherTurn := state.Transcript[1]
	if teacherTurn.Actor != models.ActorTeacher || teacherTurn.Scores == nil {
		t.Errorf("teacher turn = %+v", teacherTurn)
	}
	studentTurn := state.Transcript[2]
	if studentTurn.Actor != models.ActorStudent || studentTurn.Scores != nil {
		t.Errorf("student turn = %+v", studentTurn)
	}

	result, err = svc.Reply(context.Background(), started.SessionID, "もう一度説明するね。")
	if err != nil {
		t.Fatal(err)
	}
	if result.TurnNumber != 2 {
		t.Errorf("turn number = %d, want 2", result.TurnNumber)
	}
}

func TestReplyValidation(t *testing.T) {
	svc, store, _ := newSimulationFixture(defaultCollaborator())
	defer store.Close()

	started, _ := svc.Start(context.Background(), "scn-1")

	_, err := svc.Reply(context.Background(), started.SessionID, "")
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("empty message: error = %v, want ErrValidation", err)
	}

	_, err = svc.Reply(context.Background(), started.SessionID, strings.Repeat("あ", 2001))
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("oversized message: error = %v, want ErrValidation", err)
	}
}

func TestReplyCollaboratorFailureLeavesTranscript(t *testing.T) {
	collab := defaultCollaborator()
	svc, store, _ := newSimulationFixture(collab)
	defer store.Close()

	started, _ := svc.Start(context.Background(), "scn-1")

	collab.err = fmt.Errorf("upstream: %w", domain.ErrCollaborator)
	_, err := svc.Reply(context.Background(), started.SessionID, "どうしたの？")
	if !errors.Is(err, domain.ErrCollaborator) {
		t.Fatalf("error = %v, want ErrCollaborator", err)
	}

	state, _ := svc.Inspect(context.Background(), started.SessionID)
	if len(state.Transcript) != 1 {
		t.Errorf("failed turn mutated the transcript: %d entries", len(state.Transcript))
	}
}

func TestReplyRejectedWhenSessionRemovedFirst(t *testing.T) {
	svc, store, _ := newSimulationFixture(defaultCollaborator())
	defer store.Close()

	started, _ := svc.Start(context.Background(), "scn-1")
	session, err := store.Get(started.SessionID)
	if err != nil {
		t.Fatal(err)
	}

	// Hold the session lock so the concurrent Reply fetches the pointer
	// but cannot enter its locked region until after the removal.
	session.Lock()
	done := make(chan error, 1)
	go func() {
		_, replyErr := svc.Reply(context.Background(), started.SessionID, "まだ聞こえていますか？")
		done <- replyErr
	}()

	time.Sleep(20 * time.Millisecond)
	store.Remove(started.SessionID)
	before := len(session.Transcript)
	session.Unlock()

	if err := <-done; !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	session.Lock()
	defer session.Unlock()
	if len(session.Transcript) != before {
		t.Errorf("removed session transcript mutated: %d -> %d turns", before, len(session.Transcript))
	}
}

func TestReplyUnknownSession(t *testing.T) {
	svc, store, _ := newSimulationFixture(defaultCollaborator())
	defer store.Close()

	_, err := svc.Reply(context.Background(), "missing", "hello")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestEndComputesFloorAveragesAndPersists(t *testing.T) {
	svc, store, simulations := newSimulationFixture(defaultCollaborator())
	defer store.Close()

	started, _ := svc.Start(context.Background(), "scn-1")
	if _, err := svc.Reply(context.Background(), started.SessionID, "turn one"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Reply(context.Background(), started.SessionID, "turn two"); err != nil {
		t.Fatal(err)
	}

	result, err := svc.End(context.Background(), started.SessionID, "teacher-1")
	if err != nil {
		t.Fatalf("End returned error: %v", err)
	}

	// (80+71)/2=75, (70+75)/2=72, (90+80)/2=85; overall (75+72+85)/3=77.
	want := models.ScoreBreakdown{Sincerity: 75, Appropriateness: 72, Relevance: 85}
	if result.AverageScores != want {
		t.Errorf("averages = %+v, want %+v", result.AverageScores, want)
	}
	if result.TotalTurns != 2 {
		t.Errorf("total turns = %d, want 2", result.TotalTurns)
	}
	if result.Feedback.Summary != "落ち着いた対応でした。" {
		t.Errorf("feedback = %+v", result.Feedback)
	}

	if len(simulations.records) != 1 {
		t.Fatalf("records persisted = %d, want 1", len(simulations.records))
	}
	record := simulations.records[0]
	if record.UserID != "teacher-1" || record.ScenarioID != "scn-1" {
		t.Errorf("record identity = %+v", record)
	}
	if record.OverallScore != 77 {
		t.Errorf("overall score = %d, want 77", record.OverallScore)
	}
	if record.Feedback != "落ち着いた対応でした。" {
		t.Errorf("record feedback = %q, want the summary only", record.Feedback)
	}
	if len(record.Transcript) != 5 {
		t.Errorf("record transcript length = %d, want 5", len(record.Transcript))
	}

	// Session is gone once ended.
	if _, err := svc.Inspect(context.Background(), started.SessionID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("ended session still inspectable: %v", err)
	}
}

func TestEndWithoutTurnsFailsValidation(t *testing.T) {
	svc, store, simulations := newSimulationFixture(defaultCollaborator())
	defer store.Close()

	started, _ := svc.Start(context.Background(), "scn-1")

	_, err := svc.End(context.Background(), started.SessionID, "teacher-1")
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
	if len(simulations.records) != 0 {
		t.Errorf("failed End persisted %d records", len(simulations.records))
	}
	// The session stays active after a failed End.
	if _, err := svc.Inspect(context.Background(), started.SessionID); err != nil {
		t.Errorf("session removed by failed End: %v", err)
	}
}

func TestHistoryResolvesScenarioTitles(t *testing.T) {
	svc, store, _ := newSimulationFixture(defaultCollaborator())
	defer store.Close()

	started, _ := svc.Start(context.Background(), "scn-1")
	if _, err := svc.Reply(context.Background(), started.SessionID, "turn"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.End(context.Background(), started.SessionID, "teacher-1"); err != nil {
		t.Fatal(err)
	}

	page, err := svc.History(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if page.Total != 1 || len(page.Sessions) != 1 {
		t.Fatalf("history page = %+v", page)
	}
	item := page.Sessions[0]
	if item.ScenarioTitle != "授業に遅刻した理由を伝える練習" {
		t.Errorf("scenario title = %q", item.ScenarioTitle)
	}
	if item.TotalTurns != 1 {
		t.Errorf("total turns = %d, want 1", item.TotalTurns)
	}

	detail, err := svc.HistoryDetail(context.Background(), item.SessionID)
	if err != nil {
		t.Fatalf("HistoryDetail returned error: %v", err)
	}
	if detail.Status != "completed" || detail.CompletedAt == nil {
		t.Errorf("detail = %+v", detail)
	}
	if len(detail.Transcript) != 3 {
		t.Errorf("detail transcript length = %d, want 3", len(detail.Transcript))
	}
}
