package community

import (
	"context"
	"strings"

	"kakehashi/internal/domain/models"
	"kakehashi/internal/domain/repositories"
)

// resolveAuthor looks up one author's display identity, substituting
// the placeholder identity for a missing account.
func resolveAuthor(ctx context.Context, users repositories.UserRepository, authorID string) models.Author {
	user, err := users.GetByID(ctx, authorID)
	if err != nil {
		return models.UnknownAuthor(authorID)
	}
	return models.Author{ID: user.ID, Username: user.Username, FullName: user.FullName}
}

// resolveAuthors batch-resolves display identities for a page of author
// IDs. Missing accounts map to the placeholder identity.
func resolveAuthors(ctx context.Context, users repositories.UserRepository, authorIDs []string) (map[string]models.Author, error) {
	unique := make([]string, 0, len(authorIDs))
	seen := make(map[string]bool, len(authorIDs))
	for _, id := range authorIDs {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	found, err := users.GetByIDs(ctx, unique)
	if err != nil {
		return nil, err
	}

	authors := make(map[string]models.Author, len(unique))
	for _, id := range unique {
		if user, ok := found[id]; ok {
			authors[id] = models.Author{ID: user.ID, Username: user.Username, FullName: user.FullName}
		} else {
			authors[id] = models.UnknownAuthor(id)
		}
	}

	return authors, nil
}

// normalizeTags lower-cases and trims tags, dropping empties.
func normalizeTags(tags []string) []string {
	normalized := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" {
			normalized = append(normalized, tag)
		}
	}
	return normalized
}
