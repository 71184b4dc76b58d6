package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	apperr "github.com/matzehuels/limn/pkg/errors"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   int
		stderr string
	}{
		{"success", nil, 0, ""},
		{"interrupted", fmt.Errorf("solve: %w", context.Canceled), 130, ""},
		{"bad scene", apperr.New(apperr.ErrCodeInvalidScene, "widget %q has no parent", "nav"), 2, `Error: widget "nav" has no parent (INVALID_SCENE)`},
		{"unknown snapshot", apperr.New(apperr.ErrCodeSnapshotNotFound, "snapshot ab12"), 1, "Error: snapshot ab12 (SNAPSHOT_NOT_FOUND)"},
		{"plain", errors.New("rsvg-convert: not found"), 1, "Error: rsvg-convert: not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if got := exitCode(&buf, tt.err); got != tt.code {
				t.Errorf("exitCode() = %d, want %d", got, tt.code)
			}
			if got := strings.TrimSpace(buf.String()); got != tt.stderr {
				t.Errorf("stderr = %q, want %q", got, tt.stderr)
			}
		})
	}
}
