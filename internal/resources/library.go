package resources

import (
	"context"
	"net/url"
	"slices"
	"sync"

	"github.com/desertthunder/shelf/internal/models"
	"github.com/desertthunder/shelf/internal/services"
)

// LibraryState is a snapshot of [Library].
type LibraryState struct {
	Books   []models.LibraryEntry
	Loading bool
	Error   string
}

// Library is the signed-in user's library.
type Library struct {
	base
	mu    sync.Mutex
	state LibraryState
	act   activation
}

// NewLibrary creates a [Library] in its initial loading state.
func NewLibrary(client *services.Client, opts ...Option) *Library {
	return &Library{
		base:  newBase(client, opts),
		state: LibraryState{Books: []models.LibraryEntry{}, Loading: true},
	}
}

// State returns a copy of the current state.
func (l *Library) State() LibraryState {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.state
	s.Books = slices.Clone(l.state.Books)
	return s
}

// Load fetches the library and replaces the entry list. On failure the previous entries are kept.
func (l *Library) Load(ctx context.Context) {
	l.mu.Lock()
	ctx, gen := l.act.begin(ctx)
	l.state.Loading = true
	l.state.Error = ""
	l.mu.Unlock()
	l.notify()

	var entries []models.LibraryEntry
	err := l.client.GetJSON(ctx, "/library_books", &entries)

	l.mu.Lock()
	if !l.act.finish(gen) {
		l.mu.Unlock()
		return
	}
	l.state.Loading = false
	if err != nil {
		l.logger.Error("Error fetching library books", "error", err)
		l.state.Error = services.ErrorMessage(err, MsgLoadLibrary)
	} else {
		if entries == nil {
			entries = []models.LibraryEntry{}
		}
		l.state.Books = entries
	}
	l.mu.Unlock()
	l.notify()
}

// Refetch re-synchronizes the library with the server.
func (l *Library) Refetch(ctx context.Context) {
	l.Load(ctx)
}

// Remove deletes the library entry with id. On success the entry is dropped from local state without a
// refetch; on failure local state is unchanged.
func (l *Library) Remove(ctx context.Context, id models.ID) Result {
	return applyMutation(ctx, l.logger, Mutation{
		Name:     "remove from library",
		Policy:   Optimistic,
		Fallback: MsgRemoveBook,
		Write: func(ctx context.Context) error {
			return l.client.DeleteJSON(ctx, "/library_books/"+url.PathEscape(id.String()), nil)
		},
		Patch: func() {
			l.mu.Lock()
			l.state.Books = slices.DeleteFunc(slices.Clone(l.state.Books), func(e models.LibraryEntry) bool {
				return e.ID == id
			})
			l.mu.Unlock()
			l.notify()
		},
	})
}

// Entry returns the entry with id from local state.
func (l *Library) Entry(id models.ID) (models.LibraryEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := slices.IndexFunc(l.state.Books, func(e models.LibraryEntry) bool { return e.ID == id })
	if i < 0 {
		return models.LibraryEntry{}, false
	}
	return l.state.Books[i], true
}
