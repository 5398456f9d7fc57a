package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"kakehashi/internal/domain/services"
	"kakehashi/internal/httputil"
)

// CommunityHandler handles community board HTTP requests.
type CommunityHandler struct {
	posts    services.PostService
	comments services.CommentService
	logger   *slog.Logger
}

// NewCommunityHandler creates a new community handler
func NewCommunityHandler(posts services.PostService, comments services.CommentService, logger *slog.Logger) *CommunityHandler {
	return &CommunityHandler{
		posts:    posts,
		comments: comments,
		logger:   logger,
	}
}

// ListPosts returns one page of post summaries
// GET /api/community/posts?search=&tags=a,b&sort=newest&page=1&limit=10
func (h *CommunityHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var tags []string
	if raw := q.Get("tags"); raw != "" {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	}

	page, err := h.posts.List(r.Context(), &services.ListPostsRequest{
		Query:  q.Get("search"),
		Tags:   tags,
		Sort:   q.Get("sort"),
		Page:   queryInt(r, "page", 1),
		Limit:  queryInt(r, "limit", 0),
		UserID: httputil.GetUserID(r),
	})
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, page)
}

// CreatePost creates a new post
// POST /api/community/posts
func (h *CommunityHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req services.CreatePostRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.AuthorID = httputil.GetUserID(r)

	post, err := h.posts.Create(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, post)
}

// GetPost returns full post detail and counts the view
// GET /api/community/posts/{id}
func (h *CommunityHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.Get(r.Context(), r.PathValue("id"), httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, post)
}

// UpdatePost applies a partial update to the caller's own post
// PUT /api/community/posts/{id}
func (h *CommunityHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	var req services.UpdatePostRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	post, err := h.posts.Update(r.Context(), r.PathValue("id"), httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, post)
}

// DeletePost removes a post and everything attached to it
// DELETE /api/community/posts/{id}
func (h *CommunityHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	if err := h.posts.Delete(r.Context(), r.PathValue("id"), httputil.GetUserID(r)); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// TogglePostUpvote flips the caller's vote on a post
// POST /api/community/posts/{id}/upvote
func (h *CommunityHandler) TogglePostUpvote(w http.ResponseWriter, r *http.Request) {
	result, err := h.posts.ToggleUpvote(r.Context(), r.PathValue("id"), httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}

type pinRequest struct {
	Pinned bool `json:"pinned"`
}

// PinPost sets or clears the pinned flag, admin only
// PUT /api/community/posts/{id}/pin
func (h *CommunityHandler) PinPost(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	post, err := h.posts.Pin(r.Context(), r.PathValue("id"), httputil.GetUserID(r), req.Pinned)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, post)
}

// PopularTags returns the tag histogram, most used first
// GET /api/community/tags?limit=20
func (h *CommunityHandler) PopularTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.posts.PopularTags(r.Context(), queryInt(r, "limit", 0))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"tags": tags})
}

// ListComments returns the root comments of a post with reply counts
// GET /api/community/posts/{id}/comments
func (h *CommunityHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	list, err := h.comments.ListRoots(r.Context(), r.PathValue("id"), httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, list)
}

// CreateComment adds a comment or reply to a post
// POST /api/community/posts/{id}/comments
func (h *CommunityHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	var req services.CreateCommentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.PostID = r.PathValue("id")
	req.AuthorID = httputil.GetUserID(r)

	comment, err := h.comments.Create(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, comment)
}

// ListReplies returns the replies under a root comment
// GET /api/community/comments/{id}/replies
func (h *CommunityHandler) ListReplies(w http.ResponseWriter, r *http.Request) {
	list, err := h.comments.ListReplies(r.Context(), r.PathValue("id"), httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, list)
}

type updateCommentRequest struct {
	Content string `json:"content"`
}

// UpdateComment edits the caller's own comment
// PUT /api/community/comments/{id}
func (h *CommunityHandler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	var req updateCommentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	comment, err := h.comments.Update(r.Context(), r.PathValue("id"), httputil.GetUserID(r), req.Content)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, comment)
}

// DeleteComment tombstones a comment, cascading over replies for roots
// DELETE /api/community/comments/{id}
func (h *CommunityHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	if err := h.comments.SoftDelete(r.Context(), r.PathValue("id"), httputil.GetUserID(r)); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ToggleCommentUpvote flips the caller's vote on a comment
// POST /api/community/comments/{id}/upvote
func (h *CommunityHandler) ToggleCommentUpvote(w http.ResponseWriter, r *http.Request) {
	result, err := h.comments.ToggleUpvote(r.Context(), r.PathValue("id"), httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}
