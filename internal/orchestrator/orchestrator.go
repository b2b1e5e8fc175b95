// Package orchestrator implements the stream processor: the retry
// loop that drives an inference adapter through checkpoint/backtrack
// markers, maintaining committed history across turns and dispatching
// callbacks as the response is produced.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ravel/internal/adapter"
	"ravel/internal/checkpoint"
	"ravel/internal/logging"
	"ravel/internal/promptbuilder"
	"ravel/internal/signal"
	"ravel/internal/streamparse"
)

// budgetExhaustedAdvisory is injected inline, visible to the user, when a
// backtrack arrives after rewinds_used has already reached MaxRewinds —
// the stream is not torn down, it just keeps going with this notice
// folded into the text.
const budgetExhaustedAdvisory = " [backtrack budget exhausted] "

// Config is the subset of the application's settings bundle the core
// reads directly: the rest (model identifier, provider credentials) is
// forwarded to the adapter and never seen here.
type Config struct {
	MaxRewinds int
	MinSpacing int
	DefaultMode signal.Mode
}

// DefaultConfig returns the recommended defaults.
func DefaultConfig() Config {
	return Config{
		MaxRewinds:  3,
		MinSpacing:  30,
		DefaultMode: signal.DefaultMode,
	}
}

// Callbacks is the fixed sink the processor drives a turn through. Every
// method may be implemented synchronously or perform its own
// asynchronous dispatch (e.g. sending down a channel) — the processor
// only ever calls them and never assumes either.
type Callbacks struct {
	OnText      func(segment string)
	OnBacktrack func(ev BacktrackEvent, newVisiblePrefix string)
	OnError     func(message string)
	OnDone      func(fullText string)
}

// BacktrackEvent is the resolved (validated, post-default) view of a
// backtrack marker handed to OnBacktrack.
type BacktrackEvent struct {
	ID          string
	Reason      string
	Mode        signal.Mode
	Temperature float64
}

// Processor owns the committed conversation history across turns and
// runs the checkpoint/backtrack retry loop for each call to Run.
//
// Shaped after a retry-and-dispatch executor paired with a
// store-discard-per-cycle cache, generalized here to a single-threaded
// cooperative retry loop around one streaming adapter call per attempt.
type Processor struct {
	cfg     Config
	adapter adapter.Adapter
	log     *zap.Logger

	history []adapter.Message
}

// New returns a Processor backed by the given adapter. log may be nil.
func New(cfg Config, ad adapter.Adapter, log *zap.Logger) *Processor {
	return &Processor{
		cfg:     cfg,
		adapter: ad,
		log:     logging.NopIfNil(log).Named("orchestrator"),
	}
}

// History returns the committed conversation history. The returned
// slice must not be mutated by the caller.
func (p *Processor) History() []adapter.Message {
	return p.history
}

// run holds the mutable state of a single Run call: everything the retry
// loop threads through iterations of the inner stream. The committed
// history itself stays on the Processor.
type run struct {
	id string

	hints          []string
	mode           signal.Mode
	temperature    float64
	rewindsUsed    int
	charsSinceMark int

	visibleAccum string
	rawAccum     string

	store *checkpoint.Store
}

// Run appends userMessage to committed history and drives the retry
// loop to completion, invoking callbacks as the response is produced.
// It returns once the turn has committed (OnDone) or been rolled back
// (OnError). A failure caused by context cancellation also rolls the turn
// back but is not reported through OnError.
func (p *Processor) Run(ctx context.Context, userMessage string, cb Callbacks) {
	r := &run{
		id:             uuid.NewString(),
		mode:           p.cfg.DefaultMode,
		charsSinceMark: p.cfg.MinSpacing, // first checkpoint is always eligible
		store:          checkpoint.New(),
	}
	r.temperature, _ = signal.TemperatureFor(r.mode)

	log := p.log.With(zap.String("run_id", r.id))
	log.Debug("run starting", zap.Int("history_len", len(p.history)))

	p.history = append(p.history, adapter.Message{Role: adapter.RoleUser, Content: userMessage})

	for {
		restart, err := p.iterate(ctx, r, cb, log)
		if err != nil {
			// Roll back the optimistically-appended user message.
			p.history = p.history[:len(p.history)-1]
			if errors.Is(err, context.Canceled) {
				log.Debug("run cancelled, rolled back")
				return
			}
			log.Warn("run failed, rolled back", zap.Error(err))
			if cb.OnError != nil {
				cb.OnError(err.Error())
			}
			return
		}
		if !restart {
			break
		}
	}

	p.history = append(p.history, adapter.Message{Role: adapter.RoleAssistant, Content: r.visibleAccum})
	log.Debug("run committed", zap.Int("rewinds_used", r.rewindsUsed), zap.Int("visible_len", len(r.visibleAccum)))
	if cb.OnDone != nil {
		cb.OnDone(r.visibleAccum)
	}
}

// iterate runs one pass of the inner retry loop: compose the outgoing
// message list, stream a generation through a fresh parser, and either
// return (restart=true) after an honoured backtrack, finish the turn
// (restart=false, err=nil) on clean end-of-stream, or report a fatal
// adapter failure (err != nil).
func (p *Processor) iterate(ctx context.Context, r *run, cb Callbacks, log *zap.Logger) (restart bool, err error) {
	messages := p.continuationMessages(r)
	systemPrompt := promptbuilder.Build(r.hints, r.mode, r.temperature)

	deltas, err := p.adapter.Stream(ctx, messages, systemPrompt, r.temperature)
	if err != nil {
		return false, fmt.Errorf("adapter stream: %w", err)
	}

	parser := streamparse.New()

	for d := range deltas {
		if d.Err != nil {
			return false, d.Err
		}

		for _, ev := range parser.Feed(d.Text) {
			switch ev.Kind {
			case streamparse.KindText:
				p.applyText(r, ev.Text, cb)

			case streamparse.KindCheckpoint:
				p.applyCheckpoint(r, ev, log)

			case streamparse.KindBacktrack:
				if p.applyBacktrack(r, ev, cb, log) {
					// Cancel and await closure before the caller restarts.
					p.adapter.Cancel()
					return true, nil
				}
			}
		}
	}

	// Clean end-of-stream: flush any residual buffered text.
	for _, ev := range parser.Flush() {
		if ev.Kind == streamparse.KindText {
			p.applyText(r, ev.Text, cb)
		}
	}

	return false, nil
}

func (p *Processor) applyText(r *run, text string, cb Callbacks) {
	if text == "" {
		return
	}
	r.visibleAccum += text
	r.rawAccum += text
	r.charsSinceMark += len(text)
	if cb.OnText != nil {
		cb.OnText(text)
	}
}

func (p *Processor) applyCheckpoint(r *run, ev streamparse.Event, log *zap.Logger) {
	if r.charsSinceMark < p.cfg.MinSpacing {
		log.Debug("checkpoint ignored: spacing violation", zap.String("id", ev.ID))
		return
	}
	r.store.Register(ev.ID, r.visibleAccum, r.rawAccum)
	r.rawAccum += signal.Open + signal.KeywordCheckpoint + ev.ID + signal.Close
	r.charsSinceMark = 0
}

// applyBacktrack resolves and, if honoured, applies a backtrack marker.
// It returns true when the marker was honoured (the caller must cancel
// the stream and restart the retry loop).
func (p *Processor) applyBacktrack(r *run, ev streamparse.Event, cb Callbacks, log *zap.Logger) bool {
	if r.rewindsUsed >= p.cfg.MaxRewinds {
		log.Debug("backtrack ignored: budget exhausted", zap.String("id", ev.ID))
		r.visibleAccum += budgetExhaustedAdvisory
		r.rawAccum += budgetExhaustedAdvisory
		if cb.OnText != nil {
			cb.OnText(budgetExhaustedAdvisory)
		}
		return false
	}
	rec, ok := r.store.Get(ev.ID)
	if !ok {
		log.Debug("backtrack ignored: unknown checkpoint", zap.String("id", ev.ID))
		return false
	}

	mode := r.mode
	if ev.HasMode && signal.ValidMode(ev.Mode) {
		mode = ev.Mode
	}
	temperature := r.temperature
	if ev.HasTemperature && signal.ValidTemperature(ev.Temperature) {
		temperature = ev.Temperature
	} else if t, ok := signal.TemperatureFor(mode); ok {
		temperature = t
	}

	r.visibleAccum = rec.VisiblePrefix
	r.rawAccum = rec.RawPrefix
	r.store.PruneAfter(rec.Position)
	r.hints = append(r.hints, ev.Reason)
	r.mode = mode
	r.temperature = temperature
	r.rewindsUsed++
	r.charsSinceMark = p.cfg.MinSpacing

	log.Debug("backtrack honoured",
		zap.String("id", ev.ID), zap.Int("rewinds_used", r.rewindsUsed),
		zap.String("mode", string(r.mode)), zap.Float64("temperature", r.temperature))

	if cb.OnBacktrack != nil {
		cb.OnBacktrack(BacktrackEvent{
			ID:          ev.ID,
			Reason:      ev.Reason,
			Mode:        r.mode,
			Temperature: r.temperature,
		}, r.visibleAccum)
	}
	return true
}

// continuationMessages builds the outgoing message list: committed
// history, followed, only when raw_accum is non-empty, by an ephemeral
// assistant message carrying raw_accum and a "continue" user message.
// Neither ephemeral message is ever appended to p.history.
func (p *Processor) continuationMessages(r *run) []adapter.Message {
	out := make([]adapter.Message, 0, len(p.history)+2)
	out = append(out, p.history...)

	if r.rawAccum != "" {
		out = append(out, adapter.Message{Role: adapter.RoleAssistant, Content: r.rawAccum})
		out = append(out, adapter.Message{Role: adapter.RoleUser, Content: "Continue directly from where you left off."})
	}

	return out
}
