package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/shelf/internal/models"
	"github.com/desertthunder/shelf/internal/resources"
	"github.com/desertthunder/shelf/internal/shared"
	"github.com/urfave/cli/v3"
)

// CatalogList prints the public catalog.
func (r *Runner) CatalogList(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.connect(ctx); err != nil {
		return err
	}

	catalog := resources.NewCatalog(r.client, resources.WithLogger(r.logger))
	catalog.Load(ctx)
	state := catalog.State()
	if state.Error != "" {
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, state.Error)
	}

	if cmd.Bool("json") {
		return r.writeJSON(state.Books, cmd.Bool("pretty"))
	}

	if len(state.Books) == 0 {
		return r.writePlain("No books in the catalog yet.\n")
	}

	r.writePlainHeader(fmt.Sprintf("Catalog: %d books", len(state.Books)))
	for _, book := range state.Books {
		r.writePlain("[%s] %s - %s", book.ID, book.Author, book.Title)
		if len(book.Tags) > 0 {
			r.writePlain(" (%s)", strings.Join(book.Tags, ", "))
		}
		r.writePlain("\n")
	}
	return nil
}

func (r *Runner) loadBook(ctx context.Context, id models.ID) (*resources.BookDetail, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: book id", shared.ErrMissingArgument)
	}

	detail := resources.NewBookDetail(r.client, resources.WithLogger(r.logger))
	detail.Load(ctx, id)
	state := detail.State()
	if state.Error != "" {
		return nil, fmt.Errorf("%w: %s", shared.ErrAPIRequest, state.Error)
	}
	if state.Book == nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrBookNotFound, id)
	}
	return detail, nil
}

// CatalogShow prints one book. Library membership is shown when signed in.
func (r *Runner) CatalogShow(ctx context.Context, cmd *cli.Command) error {
	m, err := r.connect(ctx)
	if err != nil {
		return err
	}

	detail, err := r.loadBook(ctx, models.ID(cmd.StringArg("id")))
	if err != nil {
		return err
	}
	book := detail.State().Book

	if cmd.Bool("json") {
		return r.writeJSON(book, cmd.Bool("pretty"))
	}

	r.writePlainHeader(book.Title)
	r.writePlain("Author: %s\n", book.Author)
	if book.ISBN != "" {
		r.writePlain("ISBN: %s\n", book.ISBN)
	}
	if len(book.Tags) > 0 {
		r.writePlain("Tags: %s\n", strings.Join(book.Tags, ", "))
	}
	r.writePlain("Cover: %s\n", book.CoverURL())
	if book.Description != "" {
		r.writePlainln("%s", book.Description)
	}

	switch status, notes, ok := book.Library(); {
	case ok:
		r.writePlain("\n✓ In your library (%s)\n", status.Label())
		if notes != "" {
			r.writePlain("Notes: %s\n", notes)
		}
	case m.Session().IsAuthenticated():
		r.writePlain("\nNot in your library. Run 'shelf book add %s' to add it.\n", book.ID)
	default:
		r.writePlain("\nLog in to add this book to your library.\n")
	}
	return nil
}

// BookAdd adds a catalog book to the signed-in user's library.
func (r *Runner) BookAdd(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.authenticated(ctx); err != nil {
		return err
	}

	detail, err := r.loadBook(ctx, models.ID(cmd.StringArg("id")))
	if err != nil {
		return err
	}

	book := detail.State().Book
	if book.InLibrary {
		return r.writePlain("%s is already in your library (%s)\n", book.Title, book.LibraryStatus.Label())
	}

	result := detail.AddToLibrary(ctx)
	if !result.Success {
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, result.Error)
	}

	r.logger.Info("added to library", "book", book.ID)
	return r.writePlain("✓ Added %s to your library\n", book.Title)
}
