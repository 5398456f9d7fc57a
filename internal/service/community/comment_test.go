package community

import (
	"context"
	"errors"
	"testing"

	"kakehashi/internal/domain"
	"kakehashi/internal/domain/models"
	"kakehashi/internal/domain/services"
)

func newCommentFixture(t *testing.T) (services.CommentService, services.PostService, *models.Post, *fakePostRepo, *fakeCommentRepo) {
	postSvc, posts, comments, upvotes, users := newPostFixture()
	commentSvc := NewCommentService(comments, posts, upvotes, users, fakeTxManager{}, testLogger())
	post := createPost(t, postSvc, "u1", "discussion post")
	return commentSvc, postSvc, post, posts, comments
}

func TestCreateCommentBumpsPostCounters(t *testing.T) {
	svc, postSvc, post, posts, _ := newCommentFixture(t)

	before := posts.posts[post.ID].LastActivity
	comment, err := svc.Create(context.Background(), &services.CreateCommentRequest{
		PostID: post.ID, AuthorID: "u2", Content: "first comment",
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if comment.Depth != 0 || comment.ParentID != nil {
		t.Errorf("root comment shape wrong: %+v", comment)
	}

	got, err := postSvc.Get(context.Background(), post.ID, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got.CommentCount != 1 {
		t.Errorf("comment_count = %d, want 1", got.CommentCount)
	}
	if !posts.posts[post.ID].LastActivity.After(before) {
		t.Error("last_activity not bumped")
	}
}

func TestCreateReplyDepth(t *testing.T) {
	svc, _, post, _, _ := newCommentFixture(t)

	root, err := svc.Create(context.Background(), &services.CreateCommentRequest{
		PostID: post.ID, AuthorID: "u1", Content: "root",
	})
	if err != nil {
		t.Fatal(err)
	}

	reply, err := svc.Create(context.Background(), &services.CreateCommentRequest{
		PostID: post.ID, AuthorID: "u2", Content: "reply", ParentID: &root.ID,
	})
	if err != nil {
		t.Fatalf("reply create returned error: %v", err)
	}
	if reply.Depth != 1 || reply.ParentID == nil || *reply.ParentID != root.ID {
		t.Errorf("reply shape wrong: %+v", reply)
	}

	// Replying to a reply breaks the two-level invariant.
	_, err = svc.Create(context.Background(), &services.CreateCommentRequest{
		PostID: post.ID, AuthorID: "u1", Content: "too deep", ParentID: &reply.ID,
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("depth-2 create: error = %v, want ErrValidation", err)
	}
}

func TestCreateCommentMissingParent(t *testing.T) {
	svc, _, post, _, _ := newCommentFixture(t)

	missing := "nope"
	_, err := svc.Create(context.Background(), &services.CreateCommentRequest{
		PostID: post.ID, AuthorID: "u1", Content: "orphan", ParentID: &missing,
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestListRootsWithReplyCounts(t *testing.T) {
	svc, _, post, _, _ := newCommentFixture(t)

	root, _ := svc.Create(context.Background(), &services.CreateCommentRequest{
		PostID: post.ID, AuthorID: "u1", Content: "root",
	})
	for i := 0; i < 2; i++ {
		if _, err := svc.Create(context.Background(), &services.CreateCommentRequest{
			PostID: post.ID, AuthorID: "u2", Content: "reply", ParentID: &root.ID,
		}); err != nil {
			t.Fatal(err)
		}
	}

	list, err := svc.ListRoots(context.Background(), post.ID, "u1")
	if err != nil {
		t.Fatalf("ListRoots returned error: %v", err)
	}
	if list.Total != 1 || len(list.Comments) != 1 {
		t.Fatalf("roots = %d, want 1 (replies must not be eager-loaded)", list.Total)
	}
	if list.Comments[0].ReplyCount != 2 {
		t.Errorf("reply_count = %d, want 2", list.Comments[0].ReplyCount)
	}

	replies, err := svc.ListReplies(context.Background(), root.ID, "u1")
	if err != nil {
		t.Fatalf("ListReplies returned error: %v", err)
	}
	if replies.Total != 2 {
		t.Errorf("replies = %d, want 2", replies.Total)
	}
}

func TestUpdateCommentForbiddenForNonAuthor(t *testing.T) {
	svc, _, post, _, _ := newCommentFixture(t)

	comment, _ := svc.Create(context.Background(), &services.CreateCommentRequest{
		PostID: post.ID, AuthorID: "u1", Content: "mine",
	})

	_, err := svc.Update(context.Background(), comment.ID, "u2", "stolen")
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("error = %v, want ErrForbidden", err)
	}
}

func TestSoftDeleteRootCascadesToReplies(t *testing.T) {
	svc, _, post, posts, comments := newCommentFixture(t)

	root, _ := svc.Create(context.Background(), &services.CreateCommentRequest{
		PostID: post.ID, AuthorID: "u1", Content: "root",
	})
	reply, _ := svc.Create(context.Background(), &services.CreateCommentRequest{
		PostID: post.ID, AuthorID: "u2", Content: "reply", ParentID: &root.ID,
	})

	// Admin deletes the root; the reply inherits the admin flag.
	if err := svc.SoftDelete(context.Background(), root.ID, "admin"); err != nil {
		t.Fatalf("SoftDelete returned error: %v", err)
	}

	for _, id := range []string{root.ID, reply.ID} {
		stored := comments.comments[id]
		if !stored.IsDeleted || !stored.DeletedByAdmin {
			t.Errorf("comment %s: deleted=%v byAdmin=%v, want both true", id, stored.IsDeleted, stored.DeletedByAdmin)
		}
	}

	// The cached comment count stays put: tombstones remain visible.
	if posts.posts[post.ID].CommentCount != 2 {
		t.Errorf("comment_count = %d, want 2 after soft delete", posts.posts[post.ID].CommentCount)
	}
}

func TestSoftDeleteReplyLeavesSiblings(t *testing.T) {
	svc, _, post, _, comments := newCommentFixture(t)

	root, _ := svc.Create(context.Background(), &services.CreateCommentRequest{
		PostID: post.ID, AuthorID: "u1", Content: "root",
	})
	reply1, _ := svc.Create(context.Background(), &services.CreateCommentRequest{
		PostID: post.ID, AuthorID: "u2", Content: "reply 1", ParentID: &root.ID,
	})
	reply2, _ := svc.Create(context.Background(), &services.CreateCommentRequest{
		PostID: post.ID, AuthorID: "u2", Content: "reply 2", ParentID: &root.ID,
	})

	if err := svc.SoftDelete(context.Background(), reply1.ID, "u2"); err != nil {
		t.Fatalf("SoftDelete returned error: %v", err)
	}

	if !comments.comments[reply1.ID].IsDeleted {
		t.Error("deleted reply not tombstoned")
	}
	if comments.comments[reply2.ID].IsDeleted || comments.comments[root.ID].IsDeleted {
		t.Error("sibling or root tombstoned by reply delete")
	}
	if comments.comments[reply1.ID].DeletedByAdmin {
		t.Error("author delete marked as admin delete")
	}
}

func TestSoftDeleteTwiceFailsValidation(t *testing.T) {
	svc, _, post, _, _ := newCommentFixture(t)

	comment, _ := svc.Create(context.Background(), &services.CreateCommentRequest{
		PostID: post.ID, AuthorID: "u1", Content: "once",
	})
	if err := svc.SoftDelete(context.Background(), comment.ID, "u1"); err != nil {
		t.Fatal(err)
	}
	if err := svc.SoftDelete(context.Background(), comment.ID, "u1"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("second delete: error = %v, want ErrValidation", err)
	}
}

func TestSoftDeleteForbiddenForStranger(t *testing.T) {
	svc, _, post, _, _ := newCommentFixture(t)

	comment, _ := svc.Create(context.Background(), &services.CreateCommentRequest{
		PostID: post.ID, AuthorID: "u1", Content: "mine",
	})
	if err := svc.SoftDelete(context.Background(), comment.ID, "u2"); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("error = %v, want ErrForbidden", err)
	}
}

func TestDeletedCommentContentSuppressed(t *testing.T) {
	svc, _, post, _, _ := newCommentFixture(t)

	comment, _ := svc.Create(context.Background(), &services.CreateCommentRequest{
		PostID: post.ID, AuthorID: "u1", Content: "secret",
	})
	if err := svc.SoftDelete(context.Background(), comment.ID, "u1"); err != nil {
		t.Fatal(err)
	}

	list, err := svc.ListRoots(context.Background(), post.ID, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Comments) != 1 {
		t.Fatalf("tombstone missing from listing")
	}
	got := list.Comments[0]
	if !got.IsDeleted || got.Content != "" {
		t.Errorf("tombstone leaked content: %+v", got)
	}
}

func TestCommentToggleUpvoteFloor(t *testing.T) {
	postSvc, posts, comments, upvotes, users := newPostFixture()
	svc := NewCommentService(comments, posts, upvotes, users, fakeTxManager{}, testLogger())
	post := createPost(t, postSvc, "u1", "discussion post")

	comment, _ := svc.Create(context.Background(), &services.CreateCommentRequest{
		PostID: post.ID, AuthorID: "u1", Content: "votable",
	})

	res, err := svc.ToggleUpvote(context.Background(), comment.ID, "u2")
	if err != nil {
		t.Fatal(err)
	}
	if res.Upvotes != 1 || !res.UserHasUpvoted {
		t.Errorf("first toggle = %+v", res)
	}
	if upvotes.lastCreated.CreatedAt.IsZero() {
		t.Error("comment vote stored with zero created_at")
	}
	res, err = svc.ToggleUpvote(context.Background(), comment.ID, "u2")
	if err != nil {
		t.Fatal(err)
	}
	if res.Upvotes != 0 || res.UserHasUpvoted {
		t.Errorf("second toggle = %+v", res)
	}
}
