// Package seed loads the embedded demo fixtures into the database. It
// backs the cmd/seed tool and is safe to re-run: each section skips
// itself when data is already present.
package seed

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"

	"kakehashi/internal/domain"
	"kakehashi/internal/domain/models"
	"kakehashi/internal/domain/repositories"
	"kakehashi/internal/domain/services"
)

//go:embed fixtures/*.yaml
var fixtureFiles embed.FS

type scenarioFixture struct {
	Title          string `yaml:"title"`
	Description    string `yaml:"description"`
	Difficulty     string `yaml:"difficulty"`
	Category       string `yaml:"category"`
	InitialMessage string `yaml:"initial_message"`
}

type scenarioFile struct {
	Scenarios []scenarioFixture `yaml:"scenarios"`
}

type userFixture struct {
	ID       string `yaml:"id"`
	Username string `yaml:"username"`
	FullName string `yaml:"full_name"`
	Role     string `yaml:"role"`
}

type postFixture struct {
	Title   string   `yaml:"title"`
	Content string   `yaml:"content"`
	Tags    []string `yaml:"tags"`
	Pinned  bool     `yaml:"pinned"`
}

type communityFile struct {
	Users []userFixture `yaml:"users"`
	Posts []postFixture `yaml:"posts"`
}

// Seeder writes fixture data through the same repositories and services
// the server uses, so seeded rows carry real excerpts and counters.
type Seeder struct {
	users       repositories.UserRepository
	scenarios   repositories.ScenarioRepository
	posts       repositories.PostRepository
	postService services.PostService
	logger      *slog.Logger
}

// New creates a Seeder.
func New(
	users repositories.UserRepository,
	scenarios repositories.ScenarioRepository,
	posts repositories.PostRepository,
	postService services.PostService,
	logger *slog.Logger,
) *Seeder {
	return &Seeder{
		users:       users,
		scenarios:   scenarios,
		posts:       posts,
		postService: postService,
		logger:      logger,
	}
}

func loadFixture(name string, out any) error {
	data, err := fixtureFiles.ReadFile("fixtures/" + name)
	if err != nil {
		return fmt.Errorf("read fixture %s: %w", name, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal fixture %s: %w", name, err)
	}
	return nil
}

// Scenarios inserts the conversation scenarios. Existing scenarios are
// left alone.
func (s *Seeder) Scenarios(ctx context.Context) error {
	existing, err := s.scenarios.Count(ctx)
	if err != nil {
		return fmt.Errorf("count scenarios: %w", err)
	}
	if existing > 0 {
		s.logger.Info("scenarios already seeded, skipping", "count", existing)
		return nil
	}

	var file scenarioFile
	if err := loadFixture("scenarios.yaml", &file); err != nil {
		return err
	}

	now := time.Now()
	for _, f := range file.Scenarios {
		scenario := &models.Scenario{
			Title:          f.Title,
			Description:    f.Description,
			Difficulty:     f.Difficulty,
			Category:       f.Category,
			InitialMessage: f.InitialMessage,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.scenarios.Create(ctx, scenario); err != nil {
			return fmt.Errorf("create scenario %q: %w", f.Title, err)
		}
		s.logger.Info("seeded scenario", "id", scenario.ID, "title", scenario.Title)
	}

	return nil
}

// Community inserts the demo users and sample posts. Post creation goes
// through the post service so excerpts and validation apply. The first
// fixture user doubles as the already-seeded marker.
func (s *Seeder) Community(ctx context.Context) error {
	var file communityFile
	if err := loadFixture("community.yaml", &file); err != nil {
		return err
	}
	if len(file.Users) == 0 {
		return nil
	}

	if _, err := s.users.GetByID(ctx, file.Users[0].ID); err == nil {
		s.logger.Info("community data already seeded, skipping", "user_id", file.Users[0].ID)
		return nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("check seeded users: %w", err)
	}

	for _, f := range file.Users {
		user := &models.User{
			ID:       f.ID,
			Username: f.Username,
			FullName: f.FullName,
			Role:     f.Role,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return fmt.Errorf("create user %q: %w", f.Username, err)
		}
		s.logger.Info("seeded user", "id", user.ID, "username", user.Username)
	}

	authorID := file.Users[0].ID

	for i, f := range file.Posts {
		post, err := s.postService.Create(ctx, &services.CreatePostRequest{
			AuthorID: authorID,
			Title:    f.Title,
			Content:  f.Content,
			Tags:     f.Tags,
		})
		if err != nil {
			return fmt.Errorf("create post %q: %w", f.Title, err)
		}
		if f.Pinned {
			if err := s.posts.SetPinned(ctx, post.ID, true, time.Now()); err != nil {
				return fmt.Errorf("pin post %q: %w", f.Title, err)
			}
		}
		s.logger.Info("seeded post", "id", post.ID, "title", post.Title, "pinned", f.Pinned, "n", i+1)
	}

	return nil
}
