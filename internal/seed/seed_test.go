package seed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"kakehashi/internal/domain"
	"kakehashi/internal/domain/models"
	"kakehashi/internal/domain/repositories"
	"kakehashi/internal/domain/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeUserRepo struct {
	users map[string]models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]models.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = fmt.Sprintf("gen-%d", len(r.users)+1)
	}
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return &u, nil
}

func (r *fakeUserRepo) GetByIDs(_ context.Context, ids []string) (map[string]models.User, error) {
	out := make(map[string]models.User)
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

type fakeScenarioRepo struct {
	scenarios []models.Scenario
}

func (r *fakeScenarioRepo) Create(_ context.Context, scenario *models.Scenario) error {
	scenario.ID = fmt.Sprintf("scn-%d", len(r.scenarios)+1)
	r.scenarios = append(r.scenarios, *scenario)
	return nil
}

func (r *fakeScenarioRepo) GetByID(_ context.Context, id string) (*models.Scenario, error) {
	for _, s := range r.scenarios {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, fmt.Errorf("scenario %s: %w", id, domain.ErrNotFound)
}

func (r *fakeScenarioRepo) List(_ context.Context) ([]models.Scenario, error) {
	return r.scenarios, nil
}

func (r *fakeScenarioRepo) Count(_ context.Context) (int, error) {
	return len(r.scenarios), nil
}

// fakePostRepo records SetPinned calls; the seeder touches nothing else
// on the repository directly.
type fakePostRepo struct {
	repositories.PostRepository
	pinned []string
}

func (r *fakePostRepo) SetPinned(_ context.Context, id string, pinned bool, _ time.Time) error {
	if pinned {
		r.pinned = append(r.pinned, id)
	}
	return nil
}

// fakePostService records create requests; the seeder only creates.
type fakePostService struct {
	services.PostService
	requests []services.CreatePostRequest
}

func (s *fakePostService) Create(_ context.Context, req *services.CreatePostRequest) (*models.Post, error) {
	s.requests = append(s.requests, *req)
	return &models.Post{
		ID:       fmt.Sprintf("post-%d", len(s.requests)),
		AuthorID: req.AuthorID,
		Title:    req.Title,
	}, nil
}

func newSeedFixture() (*Seeder, *fakeUserRepo, *fakeScenarioRepo, *fakePostRepo, *fakePostService) {
	users := newFakeUserRepo()
	scenarios := &fakeScenarioRepo{}
	posts := &fakePostRepo{}
	postService := &fakePostService{}
	return New(users, scenarios, posts, postService, testLogger()), users, scenarios, posts, postService
}

func TestScenariosSeedSetsTimestamps(t *testing.T) {
	seeder, _, scenarios, _, _ := newSeedFixture()

	if err := seeder.Scenarios(context.Background()); err != nil {
		t.Fatalf("Scenarios returned error: %v", err)
	}
	if len(scenarios.scenarios) != 5 {
		t.Fatalf("seeded %d scenarios, want 5", len(scenarios.scenarios))
	}
	for _, s := range scenarios.scenarios {
		if s.CreatedAt.IsZero() || s.UpdatedAt.IsZero() {
			t.Errorf("scenario %q seeded with zero timestamps", s.Title)
		}
	}

	// Second run leaves existing rows alone.
	if err := seeder.Scenarios(context.Background()); err != nil {
		t.Fatalf("second Scenarios run returned error: %v", err)
	}
	if len(scenarios.scenarios) != 5 {
		t.Errorf("re-run duplicated scenarios: %d", len(scenarios.scenarios))
	}
}

func TestCommunitySeedKeepsFixtureUserIDs(t *testing.T) {
	seeder, users, _, posts, postService := newSeedFixture()

	if err := seeder.Community(context.Background()); err != nil {
		t.Fatalf("Community returned error: %v", err)
	}

	first, err := users.GetByID(context.Background(), "00000000-0000-0000-0000-000000000001")
	if err != nil {
		t.Fatalf("first fixture user not stored under its fixture ID: %v", err)
	}
	if first.Username != "tanaka_sensei" {
		t.Errorf("first user = %+v", first)
	}
	admin, err := users.GetByID(context.Background(), "00000000-0000-0000-0000-000000000099")
	if err != nil {
		t.Fatalf("admin fixture user not stored under its fixture ID: %v", err)
	}
	if admin.Role != models.RoleAdmin {
		t.Errorf("admin role = %q", admin.Role)
	}

	if len(postService.requests) != 6 {
		t.Fatalf("seeded %d posts, want 6", len(postService.requests))
	}
	for _, req := range postService.requests {
		if req.AuthorID != first.ID {
			t.Errorf("post %q authored by %q, want the stored user %q", req.Title, req.AuthorID, first.ID)
		}
	}
	if len(posts.pinned) != 1 {
		t.Errorf("pinned %d posts, want 1", len(posts.pinned))
	}
}

func TestCommunitySeedIdempotent(t *testing.T) {
	seeder, users, _, _, postService := newSeedFixture()

	if err := seeder.Community(context.Background()); err != nil {
		t.Fatalf("Community returned error: %v", err)
	}
	if err := seeder.Community(context.Background()); err != nil {
		t.Fatalf("second Community run returned error: %v", err)
	}

	if len(users.users) != 3 {
		t.Errorf("re-run duplicated users: %d", len(users.users))
	}
	if len(postService.requests) != 6 {
		t.Errorf("re-run duplicated posts: %d", len(postService.requests))
	}
}
