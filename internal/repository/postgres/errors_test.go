package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsPgNotFoundError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"no rows", pgx.ErrNoRows, true},
		{"wrapped no rows", fmt.Errorf("get post: %w", pgx.ErrNoRows), true},
		{"malformed uuid", &pgconn.PgError{Code: "22P02"}, true},
		{"wrapped malformed uuid", fmt.Errorf("get post: %w", &pgconn.PgError{Code: "22P02"}), true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"plain error", errors.New("connection refused"), false},
		{"nil", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsPgNotFoundError(tc.err); got != tc.want {
				t.Errorf("IsPgNotFoundError(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestIsPgDuplicateError(t *testing.T) {
	if !IsPgDuplicateError(fmt.Errorf("insert vote: %w", &pgconn.PgError{Code: "23505"})) {
		t.Error("wrapped unique violation not detected")
	}
	if IsPgDuplicateError(pgx.ErrNoRows) {
		t.Error("no-rows misclassified as duplicate")
	}
}
