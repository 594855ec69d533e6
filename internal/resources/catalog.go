package resources

import (
	"context"
	"slices"
	"sync"

	"github.com/desertthunder/shelf/internal/models"
	"github.com/desertthunder/shelf/internal/services"
)

// CatalogState is a snapshot of [Catalog].
type CatalogState struct {
	Books   []models.Book
	Loading bool
	Error   string // empty when the last load succeeded
}

// Catalog is the public book list.
type Catalog struct {
	base
	mu    sync.Mutex
	state CatalogState
	act   activation
}

// NewCatalog creates a [Catalog] in its initial loading state. Nothing is fetched until [Catalog.Load].
func NewCatalog(client *services.Client, opts ...Option) *Catalog {
	return &Catalog{
		base:  newBase(client, opts),
		state: CatalogState{Books: []models.Book{}, Loading: true},
	}
}

// State returns a copy of the current state.
func (c *Catalog) State() CatalogState {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.Books = slices.Clone(c.state.Books)
	return s
}

// Load fetches the full catalog and replaces the book list.
//
// On failure the previous list is kept and Error is set.
func (c *Catalog) Load(ctx context.Context) {
	c.mu.Lock()
	ctx, gen := c.act.begin(ctx)
	c.state.Loading = true
	c.state.Error = ""
	c.mu.Unlock()
	c.notify()

	var books []models.Book
	err := c.client.GetJSON(ctx, "/books", &books)

	c.mu.Lock()
	if !c.act.finish(gen) {
		c.mu.Unlock()
		return
	}
	c.state.Loading = false
	if err != nil {
		c.logger.Error("Error fetching books", "error", err)
		c.state.Error = services.ErrorMessage(err, MsgLoadBooks)
	} else {
		if books == nil {
			books = []models.Book{}
		}
		c.state.Books = books
	}
	c.mu.Unlock()
	c.notify()
}

// Refetch reloads the catalog.
func (c *Catalog) Refetch(ctx context.Context) {
	c.Load(ctx)
}
