// Package session runs user actions against the classification service and
// owns the display they update.
//
// Overlapping actions follow a fixed policy. A new classification cancels
// the one in flight, and a stale response never reaches the display. A
// retrain started while another is running is rejected without contacting
// the service. Across kinds, the last operation to finish owns the display.
package session

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/pbaille/ods/internal/domain"
	"github.com/pbaille/ods/internal/ingest"
	"github.com/pbaille/ods/internal/present"
)

// Remote is the classification service as seen by a session
type Remote interface {
	Classify(ctx context.Context, text string) (*domain.ClassificationResult, error)
	Retrain(ctx context.Context, batch domain.TrainingBatch) (*domain.TrainingMetrics, error)
}

// Journal receives one entry per finished operation
type Journal interface {
	Record(kind, input, outcome, detail string) (*domain.JournalEntry, error)
}

// RetrainGuard admits one retrain at a time. Sessions that retrain the same
// model share one guard.
type RetrainGuard struct {
	mu   sync.Mutex
	busy bool
}

// TryAcquire takes the guard, or reports false when a retrain is running
func (g *RetrainGuard) TryAcquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy {
		return false
	}
	g.busy = true
	return true
}

// Release frees the guard taken by TryAcquire
func (g *RetrainGuard) Release() {
	g.mu.Lock()
	g.busy = false
	g.mu.Unlock()
}

// Session serializes display updates for one user
type Session struct {
	remote     Remote
	journal    Journal
	log        *zap.Logger
	minRecords int
	guard      *RetrainGuard

	mu             sync.Mutex
	view           present.View
	classifyGen    uint64
	cancelClassify context.CancelFunc
}

// Option configures a Session
type Option func(*Session)

// WithJournal records every finished operation in j
func WithJournal(j Journal) Option {
	return func(s *Session) {
		s.journal = j
	}
}

// WithLogger sets the diagnostic logger
func WithLogger(log *zap.Logger) Option {
	return func(s *Session) {
		s.log = log
	}
}

// WithMinRecords overrides the client-side retrain minimum
func WithMinRecords(n int) Option {
	return func(s *Session) {
		s.minRecords = n
	}
}

// WithRetrainGuard shares g with other sessions
func WithRetrainGuard(g *RetrainGuard) Option {
	return func(s *Session) {
		s.guard = g
	}
}

// New creates a Session backed by remote
func New(remote Remote, opts ...Option) *Session {
	s := &Session{
		remote:     remote,
		log:        zap.NewNop(),
		minRecords: domain.MinTrainingRecords,
		guard:      &RetrainGuard{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// View returns what the display currently shows
func (s *Session) View() present.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Classify predicts the category of text and updates the display
func (s *Session) Classify(ctx context.Context, text string) present.View {
	if strings.TrimSpace(text) == "" {
		return s.show(present.Failure(present.MsgEmptyText))
	}

	s.mu.Lock()
	if s.cancelClassify != nil {
		s.cancelClassify()
	}
	ctx, cancel := context.WithCancel(ctx)
	s.classifyGen++
	gen := s.classifyGen
	s.cancelClassify = cancel
	s.mu.Unlock()
	defer cancel()

	result, err := s.remote.Classify(ctx, text)

	s.mu.Lock()
	if gen != s.classifyGen {
		s.mu.Unlock()
		s.log.Debug("Classification superseded", zap.Uint64("generation", gen))
		return present.Failure(present.MsgSuperseded)
	}
	s.cancelClassify = nil

	var view present.View
	if err != nil {
		s.log.Error("Classification failed", zap.Error(err))
		view = present.Failure(present.MsgClassifyFailed)
	} else {
		view = present.Classified(*result)
	}
	s.view = view
	s.mu.Unlock()

	detail := view.Prediction + " | " + view.Probability
	if err != nil {
		detail = err.Error()
	}
	s.record(domain.KindClassify, summarize(text), err, detail)
	return view
}

// Retrain normalizes the uploaded file and submits it for retraining
func (s *Session) Retrain(ctx context.Context, name string, r io.Reader) present.View {
	if name == "" || r == nil {
		return s.notice(domain.KindRetrain, name, domain.ErrEmptyInput)
	}

	return s.retrain(ctx, name, func() (domain.TrainingBatch, error) {
		cr := &countingReader{r: r}
		batch, err := ingest.Normalize(name, cr)
		s.log.Debug("Read upload",
			zap.String("file", name),
			zap.String("size", humanize.Bytes(uint64(cr.n))),
		)
		return batch, err
	})
}

// RetrainFile is Retrain for a file on fs
func (s *Session) RetrainFile(ctx context.Context, fs afero.Fs, path string) present.View {
	if path == "" {
		return s.notice(domain.KindRetrain, path, domain.ErrEmptyInput)
	}

	return s.retrain(ctx, path, func() (domain.TrainingBatch, error) {
		if info, err := fs.Stat(path); err == nil {
			s.log.Debug("Reading file",
				zap.String("file", path),
				zap.String("size", humanize.Bytes(uint64(info.Size()))),
			)
		}
		return ingest.LoadFile(fs, path)
	})
}

func (s *Session) retrain(ctx context.Context, name string, load func() (domain.TrainingBatch, error)) present.View {
	if !s.guard.TryAcquire() {
		return s.notice(domain.KindRetrain, name, domain.ErrBusy)
	}
	defer s.guard.Release()

	batch, err := load()
	if err == nil {
		err = ingest.Validate(batch, s.minRecords)
	}
	if err != nil {
		if isNotice(err) {
			return s.notice(domain.KindRetrain, name, err)
		}
		s.log.Error("Could not read training file", zap.String("file", name), zap.Error(err))
		view := s.show(present.Failure(present.MsgRetrainFailed))
		s.record(domain.KindRetrain, name, err, err.Error())
		return view
	}

	s.log.Info("Submitting retrain",
		zap.String("file", name),
		zap.Int("records", len(batch)),
	)

	metrics, err := s.remote.Retrain(ctx, batch)
	input := name + " (" + humanize.Comma(int64(len(batch))) + " registros)"
	if err != nil {
		s.log.Error("Retrain failed", zap.String("file", name), zap.Error(err))
		view := s.show(present.Failure(present.MsgRetrainFailed))
		s.record(domain.KindRetrain, input, err, err.Error())
		return view
	}

	s.log.Info("Retrain finished",
		zap.Float64("f1", metrics.F1),
		zap.String("model", metrics.ModelVersionPath),
	)
	view := s.show(present.Retrained(*metrics))
	detail := view.Probability
	if metrics.ModelVersionPath != "" {
		detail += " | " + metrics.ModelVersionPath
	}
	s.record(domain.KindRetrain, input, nil, detail)
	return view
}

// isNotice reports errors that are shown to the user without touching the
// display and without contacting the service
func isNotice(err error) bool {
	return errors.Is(err, domain.ErrEmptyInput) ||
		errors.Is(err, domain.ErrUnsupportedFormat) ||
		errors.Is(err, domain.ErrInsufficientRecords) ||
		errors.Is(err, domain.ErrBusy) ||
		errors.Is(err, os.ErrNotExist)
}

func (s *Session) notice(kind, input string, err error) present.View {
	var msg string
	var ire *domain.InsufficientRecordsError
	switch {
	case errors.As(err, &ire):
		msg = present.InsufficientRecords(ire.Min, ire.Count)
	case errors.Is(err, domain.ErrUnsupportedFormat):
		msg = present.UnsupportedFormat(input)
	case errors.Is(err, domain.ErrBusy):
		msg = present.MsgRetrainBusy
	case errors.Is(err, os.ErrNotExist):
		msg = present.FileNotFound(input)
	default:
		msg = present.MsgNoFile
	}

	s.log.Warn("Retrain rejected before submission", zap.String("file", input), zap.Error(err))
	s.record(kind, input, err, err.Error())
	return present.Failure(msg)
}

func (s *Session) show(view present.View) present.View {
	s.mu.Lock()
	s.view = view
	s.mu.Unlock()
	return view
}

func (s *Session) record(kind, input string, err error, detail string) {
	if s.journal == nil {
		return
	}
	if _, jerr := s.journal.Record(kind, input, Outcome(err), detail); jerr != nil {
		s.log.Warn("Could not write journal entry", zap.String("kind", kind), zap.Error(jerr))
	}
}

func summarize(text string) string {
	const max = 200
	text = strings.Join(strings.Fields(text), " ")
	if len([]rune(text)) <= max {
		return text
	}
	return string([]rune(text)[:max-3]) + "..."
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
