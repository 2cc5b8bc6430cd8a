// Package logging provides the log implementations selectable with the
// logImpl setting.
package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/leapstack-labs/leapmapper/pkg/reflection"
)

// Impl produces the slog handler a Configuration logs through.
type Impl interface {
	Handler() slog.Handler
}

// Text writes text records to stderr.
type Text struct {
	Out   io.Writer
	Level slog.Level
}

func (l *Text) Handler() slog.Handler {
	return slog.NewTextHandler(writerOr(l.Out, os.Stderr), &slog.HandlerOptions{Level: l.Level})
}

// JSON writes JSON records to stderr.
type JSON struct {
	Out   io.Writer
	Level slog.Level
}

func (l *JSON) Handler() slog.Handler {
	return slog.NewJSONHandler(writerOr(l.Out, os.Stderr), &slog.HandlerOptions{Level: l.Level})
}

// Stdout writes text records, including debug, to stdout.
type Stdout struct{}

func (Stdout) Handler() slog.Handler {
	return slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
}

// None discards everything.
type None struct{}

func (None) Handler() slog.Handler { return slog.DiscardHandler }

func writerOr(w, def io.Writer) io.Writer {
	if w == nil {
		return def
	}
	return w
}

// New returns a logger for impl; a non-empty prefix is attached to every
// record as the "prefix" attribute. A nil impl discards.
func New(impl Impl, prefix string) *slog.Logger {
	if impl == nil {
		return slog.New(slog.DiscardHandler)
	}
	logger := slog.New(impl.Handler())
	if prefix != "" {
		logger = logger.With(slog.String("prefix", prefix))
	}
	return logger
}

func init() {
	reflection.Register(
		reflection.InterfaceType[Impl](),
		reflection.NewType[Text](reflection.WithAlias("SLOG_TEXT")),
		reflection.NewType[JSON](reflection.WithAlias("SLOG_JSON")),
		reflection.NewType[Stdout](reflection.WithAlias("STDOUT_LOGGING")),
		reflection.NewType[None](reflection.WithAlias("NO_LOGGING")),
	)
}
