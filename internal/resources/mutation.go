package resources

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/shelf/internal/services"
)

// Policy says how local state is brought up to date after a successful write.
type Policy int

const (
	// Authoritative mutations refetch the resource from the server.
	Authoritative Policy = iota
	// Optimistic mutations patch local state directly without a refetch.
	Optimistic
)

func (p Policy) String() string {
	switch p {
	case Authoritative:
		return "authoritative"
	case Optimistic:
		return "optimistic"
	default:
		return "unknown"
	}
}

// Mutation is a write against the API together with its local update policy.
type Mutation struct {
	Name     string
	Policy   Policy
	Fallback string // message used when the server sends none

	Write   func(ctx context.Context) error
	Refetch func(ctx context.Context) error // run after Write for Authoritative
	Patch   func()                          // run after Write for Optimistic
}

// applyMutation runs m and folds any failure into a [Result].
//
// Local state is only touched after Write succeeds. A failed refetch fails the whole mutation even
// though the write itself went through.
func applyMutation(ctx context.Context, logger *log.Logger, m Mutation) Result {
	fail := func(err error) Result {
		logger.Error("Mutation failed", "mutation", m.Name, "policy", m.Policy, "error", err)
		return Result{Error: services.ErrorMessage(err, m.Fallback)}
	}

	if err := m.Write(ctx); err != nil {
		return fail(err)
	}

	switch m.Policy {
	case Authoritative:
		if m.Refetch != nil {
			if err := m.Refetch(ctx); err != nil {
				return fail(err)
			}
		}
	case Optimistic:
		if m.Patch != nil {
			m.Patch()
		}
	}

	logger.Debug("Mutation applied", "mutation", m.Name, "policy", m.Policy)
	return Result{Success: true}
}
