package encoder

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"hdmictl/internal/ddc"
	"hdmictl/internal/display"
	"hdmictl/internal/edid"
	"hdmictl/internal/logging"
	"hdmictl/internal/props"
)

// ErrNoStore is returned by New when no property store is supplied.
var ErrNoStore = errors.New("encoder: property store is required")

// Notifier receives re-evaluation requests from the encoder.
type Notifier interface {
	Hotplug(ctx context.Context, enc Capabilities)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, enc Capabilities)

func (f NotifierFunc) Hotplug(ctx context.Context, enc Capabilities) { f(ctx, enc) }

// Capabilities is the surface the host pipeline drives.
type Capabilities interface {
	Name() string
	Envelope() Envelope
	Detect(ctx context.Context) display.Status
	Modes(ctx context.Context) ModeSet
	Validate(mode *display.Mode) Verdict
	SetPower(mode PowerMode) error
	Save() error
	Restore() error
	Suspend(ctx context.Context) error
	Resume(ctx context.Context) error
}

// Options configures New.
type Options struct {
	Name   string
	Store  props.Store
	Prefix string
	// Opener opens the DDC channel reference; nil selects ddc.Open.
	Opener ddc.Opener
	DDC    ddc.Options
	// ProbeBudget bounds one Detect or Modes call. Zero leaves only the
	// adapter timeout in force.
	ProbeBudget time.Duration
	Parser      edid.Parser
	Notifier    Notifier
	Logger      *slog.Logger
}

// Encoder is one attached HDMI encoder instance.
type Encoder struct {
	name        string
	env         Envelope
	channel     ddc.Channel
	parser      edid.Parser
	notifier    Notifier
	probeBudget time.Duration
	logger      *slog.Logger

	mu         sync.Mutex
	lastStatus display.Status
	power      PowerMode
	closed     bool
}

var _ Capabilities = (*Encoder)(nil)

// New resolves the envelope and DDC channel and returns an attached encoder.
// Missing configuration is never an error; only a missing store is.
func New(opts Options) (*Encoder, error) {
	if opts.Store == nil {
		return nil, ErrNoStore
	}
	name := opts.Name
	if name == "" {
		name = "HDMI-A-1"
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	logger := logging.NewComponentLogger(opts.Logger, "encoder").With(logging.String(logging.FieldConnector, name))

	env := ResolveEnvelope(opts.Store, prefix, logger)
	if !env.PreferredFits() {
		logging.WarnEvent(logger, logging.EventPreferredOutOfBounds, "preferred resolution exceeds maximum",
			logging.Uint64("preferred_h", uint64(env.PreferredHorizontal)),
			logging.Uint64("preferred_v", uint64(env.PreferredVertical)),
		)
	}
	channel := ResolveChannel(opts.Store, prefix, opts.Opener, opts.DDC, logger)

	parser := opts.Parser
	if parser == nil {
		parser = edid.DescriptorParser{}
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = NotifierFunc(func(context.Context, Capabilities) {})
	}

	return &Encoder{
		name:        name,
		env:         env,
		channel:     channel,
		parser:      parser,
		notifier:    notifier,
		probeBudget: opts.ProbeBudget,
		logger:      logger,
		power:       PowerOn,
	}, nil
}

// Name returns the connector name.
func (e *Encoder) Name() string { return e.name }

// Envelope returns the resolved capability envelope.
func (e *Encoder) Envelope() Envelope { return e.env }

// HasChannel reports whether a DDC channel is attached.
func (e *Encoder) HasChannel() bool { return e.channel != nil }

// LastStatus returns the result of the most recent Detect. It is kept for
// diagnostics only; Detect always probes again.
func (e *Encoder) LastStatus() display.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastStatus
}

// Validate checks mode against this encoder's envelope.
func (e *Encoder) Validate(mode *display.Mode) Verdict {
	return Validate(mode, e.env)
}

// Close releases the DDC channel. It is safe to call more than once.
func (e *Encoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	if e.channel == nil {
		return nil
	}
	return e.channel.Close()
}

func (e *Encoder) probeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if e.probeBudget > 0 {
		return context.WithTimeout(ctx, e.probeBudget)
	}
	return context.WithCancel(ctx)
}
