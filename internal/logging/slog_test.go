package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErr(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantText string
	}{
		{
			name:     "nil error produces no attribute",
			err:      nil,
			wantText: "",
		},
		{
			name:     "error string is carried",
			err:      assert.AnError,
			wantText: assert.AnError.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))
			logger.Info("op failed", Err(tt.err))

			out := buf.String()
			if tt.wantText == "" {
				assert.NotContains(t, out, KeyError+"=")
			} else {
				assert.Contains(t, out, tt.wantText)
			}
		})
	}
}

func TestAttributeHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	logger.Info("event",
		Operation("add"),
		URI("file:///tmp/a.txt"),
		SessionID("sess-1"),
		Kind(KindListChanged),
		Status(StatusSuccess),
	)

	out := buf.String()
	for _, want := range []string{
		"operation=add",
		"uri=file:///tmp/a.txt",
		"session_id=sess-1",
		"kind=list_changed",
		"status=success",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %s", want, out)
		}
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	WithComponent(logger, "watcher").Info("tick")

	assert.Contains(t, buf.String(), "component=watcher")
}
