package config

// Community board limits.
const (
	MaxPostTitleLength   = 200
	MaxPostContentLength = 50000
	MaxPostTags          = 10
	MaxTagLength         = 30

	MaxCommentContentLength = 5000

	// ExcerptLength is the maximum excerpt size in characters. Longer
	// content is cut at the last whole word before the limit.
	ExcerptLength = 150

	DefaultPageLimit = 10
	MaxPageLimit     = 50

	DefaultTagLimit = 20
	MaxTagLimit     = 50
)

// Conversation limits.
const (
	MaxTeacherMessageLength = 2000
	DefaultHistoryPageLimit = 20
	MaxHistoryPageLimit     = 50
)
