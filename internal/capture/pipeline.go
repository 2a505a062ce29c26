package capture

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"nexusclip/internal/contenthash"
	"nexusclip/internal/inbox"
	"nexusclip/internal/ledger"
	"nexusclip/internal/logging"
	"nexusclip/internal/protocol"
)

// State is the coalescing state of a Pipeline.
type State int

const (
	// Idle means no cycle is running.
	Idle State = iota
	// Processing means a cycle is running or about to start.
	Processing
	// ProcessingWithPending means another cycle follows the running one.
	ProcessingWithPending
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Processing:
		return "processing"
	case ProcessingWithPending:
		return "processing_with_pending"
	default:
		return "unknown"
	}
}

// Outcome is how a single cycle ended.
type Outcome int

const (
	OutcomeNoText Outcome = iota
	OutcomeRejected
	OutcomeOutOfScope
	OutcomeDuplicate
	OutcomeWriteFailed
	OutcomeCaptured
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoText:
		return "no_text"
	case OutcomeRejected:
		return "rejected"
	case OutcomeOutOfScope:
		return "out_of_scope"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeWriteFailed:
		return "write_failed"
	case OutcomeCaptured:
		return "captured"
	default:
		return "unknown"
	}
}

// ErrAlreadyRunning is returned when Run is called on a running Pipeline.
var ErrAlreadyRunning = errors.New("capture pipeline already running")

const notifyTimeout = 15 * time.Second

// Reader fetches the current clipboard text.
type Reader interface {
	Read(ctx context.Context) (string, bool)
}

// Writer persists a capture file.
type Writer interface {
	Write(payload []byte) (inbox.File, error)
}

// Ledger records a capture.
type Ledger interface {
	Append(rec ledger.Record) error
}

// Notifier tells the operator about saved captures and failed writes.
type Notifier interface {
	CaptureSaved(ctx context.Context, file string, size int64) error
	CaptureFailed(ctx context.Context, err error) error
}

// Stats summarizes pipeline activity since start.
type Stats struct {
	Cycles      int
	Captured    int
	Duplicates  int
	Failures    int
	LastCapture string
	LastAt      time.Time
}

// Pipeline owns the dedup state and the processing flags.
type Pipeline struct {
	reader   Reader
	writer   Writer
	ledger   Ledger
	notifier Notifier
	logger   *slog.Logger

	mu      sync.Mutex
	state   State
	running bool
	stats   Stats

	// wake holds at most one start signal for the worker.
	wake chan struct{}

	// lastFingerprint is touched only by the worker goroutine.
	lastFingerprint string

	notifyWG sync.WaitGroup
}

// New assembles a Pipeline. A nil notifier disables confirmations.
func New(reader Reader, writer Writer, ledger Ledger, notifier Notifier, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		reader:   reader,
		writer:   writer,
		ledger:   ledger,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "capture"),
		wake:     make(chan struct{}, 1),
	}
}

// Notify reports a clipboard change. It never blocks: a change that arrives
// while a cycle runs only marks another cycle as pending, and further changes
// are folded into that one.
func (p *Pipeline) Notify() {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.state {
	case Idle:
		p.state = Processing
		select {
		case p.wake <- struct{}{}:
		default:
		}
	case Processing:
		p.state = ProcessingWithPending
	case ProcessingWithPending:
	}
}

// State returns the current coalescing state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Stats returns a snapshot of pipeline counters.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Run processes notifications until ctx is cancelled. It returns nil on
// cancellation after outstanding confirmations finish.
func (p *Pipeline) Run(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return ErrAlreadyRunning
	}
	p.running = true
	p.mu.Unlock()

	defer func() {
		p.notifyWG.Wait()
		p.mu.Lock()
		p.running = false
		p.state = Idle
		p.mu.Unlock()
		select {
		case <-p.wake:
		default:
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.wake:
		}
		for {
			if ctx.Err() != nil {
				return nil
			}
			outcome := p.cycle(ctx)
			p.record(outcome)
			if !p.finishCycle() {
				break
			}
		}
	}
}

// CaptureOnce runs a single cycle on the calling goroutine and waits for its
// confirmation to be delivered. It fails with ErrAlreadyRunning while Run is
// active.
func (p *Pipeline) CaptureOnce(ctx context.Context) (Outcome, error) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return OutcomeNoText, ErrAlreadyRunning
	}
	p.running = true
	p.state = Processing
	p.mu.Unlock()

	defer func() {
		p.notifyWG.Wait()
		p.mu.Lock()
		p.running = false
		p.state = Idle
		p.mu.Unlock()
	}()

	outcome := p.cycle(ctx)
	p.record(outcome)
	return outcome, nil
}

// finishCycle moves the state on after a cycle and reports whether another
// cycle must run immediately.
func (p *Pipeline) finishCycle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == ProcessingWithPending {
		p.state = Processing
		return true
	}
	p.state = Idle
	return false
}

func (p *Pipeline) record(outcome Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.Cycles++
	switch outcome {
	case OutcomeCaptured:
		p.stats.Captured++
	case OutcomeDuplicate:
		p.stats.Duplicates++
	case OutcomeWriteFailed:
		p.stats.Failures++
	}
}

func (p *Pipeline) cycle(ctx context.Context) Outcome {
	raw, ok := p.reader.Read(ctx)
	if !ok {
		return OutcomeNoText
	}

	payload, err := NewPayload(raw)
	if err != nil {
		p.logger.Debug("clipboard payload dropped", logging.Error(err))
		return OutcomeRejected
	}
	if !protocol.InScope(payload.Bytes) {
		return OutcomeOutOfScope
	}
	if contenthash.Equal(payload.Fingerprint, p.lastFingerprint) {
		p.logger.Debug("duplicate clipboard payload skipped",
			logging.String(logging.FieldContentHash, payload.Fingerprint),
		)
		return OutcomeDuplicate
	}

	file, err := p.writer.Write(payload.Bytes)
	if err != nil {
		logging.ErrorWithContext(p.logger, "capture file write failed", "capture_write_failed",
			logging.Error(err),
			logging.String(logging.FieldContentHash, payload.Fingerprint),
			logging.Int(logging.FieldPayloadBytes, payload.Len()),
			logging.String(logging.FieldErrorHint, "check free space and permissions on the inbox directory"),
		)
		p.announce(ctx, func(nctx context.Context) error {
			return p.notifier.CaptureFailed(nctx, err)
		})
		return OutcomeWriteFailed
	}

	rec := ledger.NewCaptureRecord(file.CapturedAt, file.Name, payload.Fingerprint)
	if err := p.ledger.Append(rec); err != nil {
		logging.WarnWithContext(p.logger, "ledger append failed", "ledger_append_failed",
			logging.Error(err),
			logging.String(logging.FieldCaptureFile, file.Name),
			logging.String(logging.FieldErrorHint, "check permissions on the ledger directory"),
			logging.String(logging.FieldImpact, "capture file saved without a ledger record"),
		)
	}

	p.lastFingerprint = payload.Fingerprint
	p.mu.Lock()
	p.stats.LastCapture = file.Name
	p.stats.LastAt = file.CapturedAt
	p.mu.Unlock()

	p.logger.Info("clipboard captured",
		logging.String(logging.FieldCaptureFile, file.Name),
		logging.String(logging.FieldContentHash, payload.Fingerprint),
		logging.Int(logging.FieldPayloadBytes, payload.Len()),
	)
	p.announce(ctx, func(nctx context.Context) error {
		return p.notifier.CaptureSaved(nctx, file.Name, file.Size)
	})
	return OutcomeCaptured
}

// announce delivers a confirmation without blocking the worker.
func (p *Pipeline) announce(ctx context.Context, send func(context.Context) error) {
	if p.notifier == nil {
		return
	}
	p.notifyWG.Add(1)
	go func() {
		defer p.notifyWG.Done()
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		if err := send(nctx); err != nil {
			p.logger.Debug("capture notification failed", logging.Error(err))
		}
	}()
}
