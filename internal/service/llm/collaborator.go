// Package llm implements the conversation collaborator on top of
// pluggable text-generation providers.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"kakehashi/internal/domain"
	"kakehashi/internal/domain/models"
	"kakehashi/internal/domain/services"
	domainllm "kakehashi/internal/domain/services/llm"
)

// Per-call generation parameters. Scoring runs cold for consistency,
// roleplay runs warm for variation.
const (
	studentTemperature  = 0.8
	studentMaxTokens    = 200
	scoringTemperature  = 0.3
	scoringMaxTokens    = 100
	feedbackTemperature = 0.6
	feedbackMaxTokens   = 500
)

// Collaborator implements services.Collaborator on a Provider. Every
// call is bounded by the configured timeout; provider failures surface
// as domain.ErrCollaborator.
type Collaborator struct {
	provider domainllm.Provider
	model    string
	timeout  time.Duration
	logger   *slog.Logger
}

// NewCollaborator creates a collaborator bound to one provider and
// model.
func NewCollaborator(provider domainllm.Provider, model string, timeout time.Duration, logger *slog.Logger) *Collaborator {
	return &Collaborator{
		provider: provider,
		model:    model,
		timeout:  timeout,
		logger:   logger,
	}
}

func (c *Collaborator) generate(ctx context.Context, system, user string, temperature float64, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	text, err := c.provider.GenerateText(ctx, &domainllm.GenerateRequest{
		Model:       c.model,
		System:      system,
		Messages:    []domainllm.Message{{Role: "user", Content: user}},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %v: %w", c.provider.Name(), err, domain.ErrCollaborator)
	}

	return strings.TrimSpace(text), nil
}

// StudentReply generates the simulated student's next line. The reply
// always begins with the student speaker marker.
func (c *Collaborator) StudentReply(ctx context.Context, scenario *models.Scenario, transcript []models.Turn, teacherMessage string) (string, error) {
	reply, err := c.generate(ctx,
		studentSystemPrompt,
		studentUserPrompt(scenario, transcript, teacherMessage),
		studentTemperature, studentMaxTokens)
	if err != nil {
		return "", err
	}
	if reply == "" {
		return "", fmt.Errorf("%s: empty student reply: %w", c.provider.Name(), domain.ErrCollaborator)
	}

	if !strings.HasPrefix(reply, studentMarker) {
		reply = studentMarker + " " + reply
	}

	return reply, nil
}

// rawScores tolerates missing axes; absent fields score a neutral 50.
type rawScores struct {
	Sincerity       *int `json:"sincerity"`
	Appropriateness *int `json:"appropriateness"`
	Relevance       *int `json:"relevance"`
}

func clampScore(v *int) int {
	if v == nil {
		return 50
	}
	if *v < 0 {
		return 0
	}
	if *v > 100 {
		return 100
	}
	return *v
}

// ScoreTeacherMessage evaluates a teacher turn on the three axes. An
// unparseable response degrades to a neutral 60/60/60 instead of
// failing the turn; a provider failure still fails it.
func (c *Collaborator) ScoreTeacherMessage(ctx context.Context, scenario *models.Scenario, transcript []models.Turn, teacherMessage string) (models.ScoreBreakdown, error) {
	text, err := c.generate(ctx,
		scoringSystemPrompt,
		scoringUserPrompt(scenario, transcript, teacherMessage),
		scoringTemperature, scoringMaxTokens)
	if err != nil {
		return models.ScoreBreakdown{}, err
	}

	var raw rawScores
	if err := decodeJSONResponse(text, &raw); err != nil {
		if errors.Is(err, domain.ErrCollaboratorParse) {
			c.logger.Warn("unparseable scoring response, using fallback scores", "provider", c.provider.Name())
			return models.ScoreBreakdown{Sincerity: 60, Appropriateness: 60, Relevance: 60}, nil
		}
		return models.ScoreBreakdown{}, err
	}

	return models.ScoreBreakdown{
		Sincerity:       clampScore(raw.Sincerity),
		Appropriateness: clampScore(raw.Appropriateness),
		Relevance:       clampScore(raw.Relevance),
	}, nil
}

// SessionFeedback summarizes an ended session. An unparseable response
// degrades to a fixed generic feedback structure.
func (c *Collaborator) SessionFeedback(ctx context.Context, scenario *models.Scenario, transcript []models.Turn, scores []models.ScoreBreakdown) (models.SessionFeedback, error) {
	avg := averageScores(scores)

	text, err := c.generate(ctx,
		feedbackSystemPrompt,
		feedbackUserPrompt(scenario, transcript, avg, len(scores)),
		feedbackTemperature, feedbackMaxTokens)
	if err != nil {
		return models.SessionFeedback{}, err
	}

	var feedback models.SessionFeedback
	if err := decodeJSONResponse(text, &feedback); err != nil {
		if errors.Is(err, domain.ErrCollaboratorParse) {
			c.logger.Warn("unparseable feedback response, using fallback feedback", "provider", c.provider.Name())
			return fallbackFeedback(len(scores)), nil
		}
		return models.SessionFeedback{}, err
	}

	if feedback.Summary == "" {
		feedback.Summary = "セッションを完了しました。"
	}
	if len(feedback.Strengths) == 0 {
		feedback.Strengths = []string{"対話を最後まで続けました"}
	}
	if len(feedback.Improvements) == 0 {
		feedback.Improvements = []string{"より具体的な質問を心がけましょう"}
	}
	if len(feedback.Suggestions) == 0 {
		feedback.Suggestions = []string{"学生の気持ちに寄り添う言葉を増やしましょう"}
	}

	return feedback, nil
}

// averageScores computes the per-axis integer mean; an empty slice
// averages to a neutral 50 on every axis.
func averageScores(scores []models.ScoreBreakdown) models.ScoreBreakdown {
	if len(scores) == 0 {
		return models.ScoreBreakdown{Sincerity: 50, Appropriateness: 50, Relevance: 50}
	}
	var sum models.ScoreBreakdown
	for _, s := range scores {
		sum.Sincerity += s.Sincerity
		sum.Appropriateness += s.Appropriateness
		sum.Relevance += s.Relevance
	}
	n := len(scores)
	return models.ScoreBreakdown{
		Sincerity:       sum.Sincerity / n,
		Appropriateness: sum.Appropriateness / n,
		Relevance:       sum.Relevance / n,
	}
}

func fallbackFeedback(turns int) models.SessionFeedback {
	return models.SessionFeedback{
		Summary:      fmt.Sprintf("セッションを完了しました。%d回の対話を行いました。", turns),
		Strengths:    []string{"対話を最後まで続けることができました"},
		Improvements: []string{"より具体的な質問を心がけましょう"},
		Suggestions:  []string{"学生の気持ちに寄り添う言葉を増やしましょう"},
	}
}

var _ services.Collaborator = (*Collaborator)(nil)
