package logger_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/sift/internal/adapters/logger"
	"go.trai.ch/zerr"
)

func TestPrettyHandler_Attrs(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	buf := &bytes.Buffer{}
	log := slog.New(logger.NewPrettyHandler(buf, nil))

	log.With("path", "a.jsonl").Info("scanned", "new", 2)

	assert.Equal(t, "scanned path=a.jsonl new=2\n", buf.String())
}

func TestPrettyHandler_Group(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	buf := &bytes.Buffer{}
	log := slog.New(logger.NewPrettyHandler(buf, nil))

	log.WithGroup("scan").WithGroup("file").Warn("slow", "ms", 120)

	assert.Equal(t, "! slow scan.file.ms=120\n", buf.String())
}

func TestPrettyHandler_Level(t *testing.T) {
	h := logger.NewPrettyHandler(nil, &slog.HandlerOptions{Level: slog.LevelWarn})

	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestPrettyHandler_ErrorMetadata(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	buf := &bytes.Buffer{}
	log := slog.New(logger.NewPrettyHandler(buf, nil))

	err := zerr.With(zerr.Wrap(errors.New("disk full"), "failed to save checkpoint"), "path", "/state/cursors.json")
	log.Warn("checkpoint", "err", err)

	assert.Equal(t,
		"! checkpoint err=\"failed to save checkpoint: disk full\" err.path=/state/cursors.json\n",
		buf.String())
}

func TestPrettyHandler_QuotesAndInlineGroups(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	buf := &bytes.Buffer{}
	log := slog.New(logger.NewPrettyHandler(buf, nil))

	log.Info("scanned",
		"path", "/logs/my session.jsonl",
		slog.Group("stats", "new", 1, "skipped", 0),
		"note", "")

	assert.Equal(t,
		"scanned path=\"/logs/my session.jsonl\" stats.new=1 stats.skipped=0 note=\"\"\n",
		buf.String())
}

func TestPrettyHandler_WithAttrsDoesNotLeak(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	buf := &bytes.Buffer{}
	base := slog.New(logger.NewPrettyHandler(buf, nil)).With("root", "a")

	base.With("file", "x").Info("one")
	base.With("file", "y").Info("two")

	assert.Equal(t, "one root=a file=x\ntwo root=a file=y\n", buf.String())
}
