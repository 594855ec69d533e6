package resources

import (
	"context"
	"net/url"
	"slices"
	"sync"

	"github.com/desertthunder/shelf/internal/models"
	"github.com/desertthunder/shelf/internal/services"
)

// BookDetailState is a snapshot of [BookDetail].
type BookDetailState struct {
	ID      models.ID
	Book    *models.BookDetail
	Loading bool
	Error   string
	Adding  bool // an add-to-library write is in flight
}

// BookDetail is a single book and the caller's library membership for it.
type BookDetail struct {
	base
	mu     sync.Mutex
	state  BookDetailState
	act    activation
	adding int
}

// NewBookDetail creates a [BookDetail] in its initial loading state.
func NewBookDetail(client *services.Client, opts ...Option) *BookDetail {
	return &BookDetail{
		base:  newBase(client, opts),
		state: BookDetailState{Loading: true},
	}
}

// State returns a copy of the current state.
func (d *BookDetail) State() BookDetailState {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.state
	if d.state.Book != nil {
		b := *d.state.Book
		b.Tags = slices.Clone(b.Tags)
		s.Book = &b
	}
	return s
}

func bookPath(id models.ID) string {
	return "/books/" + url.PathEscape(id.String())
}

// Load activates the resource for id and fetches its detail. An empty id does nothing.
//
// A later Load supersedes this one: its request is cancelled and any response it still produces is
// discarded.
func (d *BookDetail) Load(ctx context.Context, id models.ID) {
	if id == "" {
		return
	}

	d.mu.Lock()
	ctx, gen := d.act.begin(ctx)
	d.state.ID = id
	d.state.Loading = true
	d.state.Error = ""
	d.mu.Unlock()
	d.notify()

	book, err := d.fetch(ctx, id)

	d.mu.Lock()
	if !d.act.finish(gen) {
		d.mu.Unlock()
		return
	}
	d.state.Loading = false
	if err != nil {
		d.logger.Error("Error fetching book details", "id", id, "error", err)
		d.state.Error = services.ErrorMessage(err, MsgLoadBook)
	} else {
		d.state.Book = book
	}
	d.mu.Unlock()
	d.notify()
}

// Refetch reloads the active book.
func (d *BookDetail) Refetch(ctx context.Context) {
	d.mu.Lock()
	id := d.state.ID
	d.mu.Unlock()
	d.Load(ctx, id)
}

func (d *BookDetail) fetch(ctx context.Context, id models.ID) (*models.BookDetail, error) {
	var book models.BookDetail
	if err := d.client.GetJSON(ctx, bookPath(id), &book); err != nil {
		return nil, err
	}
	return &book, nil
}

// AddToLibrary adds the active book to the caller's library with status "to-read", then refetches the
// book so membership reflects the server.
//
// Concurrent calls are not rejected; each issues its own request. Adding stays true while any call is in
// flight. Failures are reported only through the returned [Result].
func (d *BookDetail) AddToLibrary(ctx context.Context) Result {
	d.mu.Lock()
	id := d.state.ID
	if id == "" {
		d.mu.Unlock()
		return Result{Error: MsgAddToLibrary}
	}
	d.adding++
	d.state.Adding = true
	d.mu.Unlock()
	d.notify()

	defer func() {
		d.mu.Lock()
		d.adding--
		d.state.Adding = d.adding > 0
		d.mu.Unlock()
		d.notify()
	}()

	return applyMutation(ctx, d.logger, Mutation{
		Name:     "add to library",
		Policy:   Authoritative,
		Fallback: MsgAddToLibrary,
		Write: func(ctx context.Context) error {
			body := map[string]models.NewLibraryBook{
				"library_book": {DatoBookID: id, Status: models.StatusToRead},
			}
			return d.client.PostJSON(ctx, "/library_books", body, nil)
		},
		Refetch: func(ctx context.Context) error {
			book, err := d.fetch(ctx, id)
			if err != nil {
				return err
			}

			d.mu.Lock()
			if d.state.ID == id {
				d.state.Book = book
			}
			d.mu.Unlock()
			d.notify()
			return nil
		},
	})
}
