package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/desertthunder/shelf/internal/formatter"
	"github.com/desertthunder/shelf/internal/models"
	"github.com/desertthunder/shelf/internal/resources"
	"github.com/desertthunder/shelf/internal/shared"
	"github.com/desertthunder/shelf/internal/tasks"
	"github.com/urfave/cli/v3"
)

func (r *Runner) loadLibrary(ctx context.Context) (*resources.Library, error) {
	if _, err := r.authenticated(ctx); err != nil {
		return nil, err
	}

	library := resources.NewLibrary(r.client, resources.WithLogger(r.logger))
	library.Load(ctx)
	if state := library.State(); state.Error != "" {
		return nil, fmt.Errorf("%w: %s", shared.ErrAPIRequest, state.Error)
	}
	return library, nil
}

// LibraryList prints the signed-in user's library.
func (r *Runner) LibraryList(ctx context.Context, cmd *cli.Command) error {
	library, err := r.loadLibrary(ctx)
	if err != nil {
		return err
	}
	entries := library.State().Books

	if cmd.Bool("json") {
		return r.writeJSON(entries, cmd.Bool("pretty"))
	}

	if len(entries) == 0 {
		return r.writePlain("Your library is empty. Run 'shelf catalog list' to find books.\n")
	}

	r.writePlainHeader(fmt.Sprintf("Library: %d books", len(entries)))
	for _, entry := range entries {
		r.writePlain("[%s] %s - %s [%s]\n", entry.ID, entry.Author, entry.Title, entry.Status.Label())
	}
	return nil
}

// LibraryRemove deletes a library entry by its entry id.
func (r *Runner) LibraryRemove(ctx context.Context, cmd *cli.Command) error {
	id := models.ID(cmd.StringArg("id"))
	if id == "" {
		return fmt.Errorf("%w: entry id", shared.ErrMissingArgument)
	}

	library, err := r.loadLibrary(ctx)
	if err != nil {
		return err
	}

	entry, ok := library.Entry(id)
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrEntryNotFound, id)
	}

	result := library.Remove(ctx, id)
	if !result.Success {
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, result.Error)
	}

	r.logger.Info("removed from library", "entry", id)
	return r.writePlain("✓ Removed %s\n", entry.Title)
}

// LibraryExport snapshots the library and writes it in the requested format.
func (r *Runner) LibraryExport(ctx context.Context, cmd *cli.Command) error {
	name := cmd.String("format")
	if name == "" {
		name = r.config.Export.Format
	}
	format, err := formatter.ParseFormat(name)
	if err != nil {
		return err
	}

	covers := cmd.Bool("covers")
	if covers && format != formatter.FormatMarkdown {
		return fmt.Errorf("%w: --covers requires --format markdown", shared.ErrInvalidFlag)
	}

	if _, err := r.authenticated(ctx); err != nil {
		return err
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchLibrary:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.FetchDetails:
				r.writePlain("   %s\n", update.Message)
			}
		}
	}()

	exporter := tasks.NewExporter(r.client, r.logger)
	result, err := exporter.Export(ctx, progressCh, tasks.ExportOpts{
		Details:    cmd.Bool("details"),
		NumWorkers: int(cmd.Int("workers")),
		RateLimit:  r.config.Export.RateLimit,
	})
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	output := cmd.String("output")
	if output == "" && r.config.Export.OutputDir != "" {
		output = filepath.Join(r.config.Export.OutputDir, "library")
		if format != formatter.FormatMarkdown {
			output += "." + string(format)
		}
	}
	if output != "" {
		if output, err = shared.ExpandPath(output); err != nil {
			return err
		}
	}

	var written string
	var warnings []string
	if format == formatter.FormatMarkdown {
		md, err := formatter.WriteMarkdownExport(result.Export, output, covers)
		if err != nil {
			return err
		}
		written = md.Directory
		warnings = md.Warnings
	} else {
		if written, err = formatter.WriteFileExport(result.Export, format, output); err != nil {
			return err
		}
	}

	r.writePlain("\n")
	r.writePlainHeader("Export Complete!")
	r.writePlain("Books: %d\n", result.Total)
	if result.Export.Detailed {
		r.writePlain("Details: %d/%d\n", result.Enriched, result.Total)
	}
	r.writePlain("Written to: %s\n", written)

	if len(result.Failures) > 0 {
		r.writePlain("\nMissing details for %d books:\n", len(result.Failures))
		for _, f := range result.Failures {
			r.writePlain("  - %s: %s\n", f.Title, f.Error)
		}
	}
	if len(warnings) > 0 {
		r.writePlain("\nWarnings:\n  - %s\n", strings.Join(warnings, "\n  - "))
	}
	return nil
}
