package resources

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/shelf/internal/services"
)

// Fallback messages reported when the server provides none.
const (
	MsgLoadBooks    = "Failed to load books"
	MsgLoadBook     = "Failed to load book details"
	MsgAddToLibrary = "Failed to add to library"
	MsgLoadLibrary  = "Failed to load library books"
	MsgRemoveBook   = "Failed to remove book"
)

// Result is the outcome of a write operation.
type Result struct {
	Success bool
	Error   string
}

// Option configures a resource.
type Option func(*base)

// WithOnChange registers fn to be called after every state transition. fn runs without any resource
// lock held and may call State.
func WithOnChange(fn func()) Option {
	return func(b *base) { b.onChange = fn }
}

// WithLogger sets the logger used for failure diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(b *base) { b.logger = l }
}

// base is the plumbing shared by all resources.
type base struct {
	client   *services.Client
	logger   *log.Logger
	onChange func()
}

func newBase(client *services.Client, opts []Option) base {
	b := base{client: client, logger: log.Default()}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b *base) notify() {
	if b.onChange != nil {
		b.onChange()
	}
}

// activation tracks the latest load for a resource. Callers hold the resource mutex.
type activation struct {
	gen    uint64
	cancel context.CancelFunc
}

// begin supersedes the current activation and returns the context and generation for a new one.
func (a *activation) begin(ctx context.Context) (context.Context, uint64) {
	if a.cancel != nil {
		a.cancel()
	}
	ctx, a.cancel = context.WithCancel(ctx)
	a.gen++
	return ctx, a.gen
}

// finish reports whether gen is still current and, if so, releases its context.
func (a *activation) finish(gen uint64) bool {
	if gen != a.gen {
		return false
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	return true
}
