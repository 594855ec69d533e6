// package formatter renders books and library exports as CSV, Markdown, plain text and JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/shelf/internal/models"
	"github.com/desertthunder/shelf/internal/shared"
)

// Format is an export output format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "txt"
)

// Formats lists the supported export formats.
var Formats = []Format{FormatJSON, FormatCSV, FormatMarkdown, FormatText}

// ParseFormat validates an export format name. "md" and "text" are accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "txt", "text":
		return FormatText, nil
	}
	return "", fmt.Errorf("%w: unsupported format %q (want json, csv, markdown or txt)", shared.ErrInvalidFlag, s)
}

// ExportToCSV converts a LibraryExport to CSV format with columns: ID, Book ID, Title, Author, Status, Tags, Notes
func ExportToCSV(export *models.LibraryExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Book ID", "Title", "Author", "Status", "Tags", "Notes"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, entry := range export.Entries {
		record := []string{
			entry.ID.String(),
			entry.DatoBookID.String(),
			entry.Title,
			entry.Author,
			string(entry.Status),
			strings.Join(entry.Tags, ", "),
			entry.Notes,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a LibraryExport to Markdown, grouping entries by status in order of first appearance.
//
// covers maps entry ids to local image paths; entries without one get no image.
func ExportToMarkdown(export *models.LibraryExport, covers map[models.ID]string) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# My Library\n\n")
	buf.WriteString(fmt.Sprintf("**Books**: %d\n", len(export.Entries)))
	if !export.ExportedAt.IsZero() {
		buf.WriteString(fmt.Sprintf("**Exported**: %s\n", export.ExportedAt.Format(time.RFC1123)))
	}
	if export.Source != "" {
		buf.WriteString(fmt.Sprintf("**Source**: %s\n", export.Source))
	}
	buf.WriteString("\n")

	for _, group := range groupByStatus(export.Entries) {
		buf.WriteString(fmt.Sprintf("## %s\n\n", statusHeading(group.status)))
		for _, entry := range group.entries {
			buf.WriteString(fmt.Sprintf("- **%s** by %s", entry.Title, entry.Author))
			if len(entry.Tags) > 0 {
				buf.WriteString(fmt.Sprintf(" _(%s)_", strings.Join(entry.Tags, ", ")))
			}
			buf.WriteString("\n")

			if path, ok := covers[entry.ID]; ok {
				buf.WriteString(fmt.Sprintf("  ![%s](%s)\n", entry.Title, path))
			}
			if entry.Notes != "" {
				buf.WriteString(fmt.Sprintf("  > %s\n", entry.Notes))
			}
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToText converts a LibraryExport to plain text format
func ExportToText(export *models.LibraryExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Library: %d books\n\n", len(export.Entries)))
	for i, entry := range export.Entries {
		buf.WriteString(fmt.Sprintf("%d. %s - %s [%s]\n", i+1, entry.Author, entry.Title, entry.Status.Label()))
		if entry.Notes != "" {
			buf.WriteString(fmt.Sprintf("   %s\n", entry.Notes))
		}
	}

	return buf.Bytes(), nil
}

// ExportToJSON encodes the whole export as indented JSON.
func ExportToJSON(export *models.LibraryExport) ([]byte, error) {
	return shared.MarshalJSON(export, true)
}

// Render dispatches to the exporter for format.
func Render(export *models.LibraryExport, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return ExportToJSON(export)
	case FormatCSV:
		return ExportToCSV(export)
	case FormatMarkdown:
		return ExportToMarkdown(export, nil)
	case FormatText:
		return ExportToText(export)
	}
	return nil, fmt.Errorf("%w: unsupported format %q", shared.ErrInvalidFlag, format)
}

type statusGroup struct {
	status  models.Status
	entries []models.ExportEntry
}

func groupByStatus(entries []models.ExportEntry) []statusGroup {
	var groups []statusGroup
	index := make(map[models.Status]int)
	for _, e := range entries {
		i, ok := index[e.Status]
		if !ok {
			i = len(groups)
			index[e.Status] = i
			groups = append(groups, statusGroup{status: e.Status})
		}
		groups[i].entries = append(groups[i].entries, e)
	}
	return groups
}

func statusHeading(s models.Status) string {
	label := s.Label()
	if label == "" {
		return "No Status"
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// WriteFileExport writes a single-file export (JSON, CSV or text) to path.
//
// Defaults to library.{ext} in the current directory.
func WriteFileExport(export *models.LibraryExport, format Format, path string) (string, error) {
	if format == FormatMarkdown {
		return "", fmt.Errorf("%w: markdown exports are written as a directory", shared.ErrInvalidFlag)
	}
	if path == "" {
		path = "library." + string(format)
	}

	data, err := Render(export, format)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", format, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", format, err)
	}

	return path, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory string
	Files     []string
	Warnings  []string
}

// WriteMarkdownExport exports a library to Markdown in a dedicated directory.
//
// Directory name defaults to "library". When withCovers is set, cover images are downloaded to
// {dir}/covers/{entry id}.jpg; entries using the placeholder are skipped and download failures are
// recorded as warnings rather than failing the export.
func WriteMarkdownExport(export *models.LibraryExport, outputDir string, withCovers bool) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = "library"
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	covers := make(map[models.ID]string)
	if withCovers {
		coverDir := filepath.Join(outputDir, "covers")
		for _, entry := range export.Entries {
			url := entry.CoverURL()
			if url == models.PlaceholderCoverURL {
				continue
			}

			imageData, err := DownloadImage(url)
			if err != nil {
				result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", entry.Title, err))
				continue
			}
			if err := os.MkdirAll(coverDir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create directory: %w", err)
			}

			name := entry.ID.String() + ".jpg"
			if err := os.WriteFile(filepath.Join(coverDir, name), imageData, 0644); err != nil {
				result.Warnings = append(result.Warnings, fmt.Sprintf("%s: failed to save cover image: %v", entry.Title, err))
				continue
			}
			covers[entry.ID] = "covers/" + name
			result.Files = append(result.Files, filepath.Join(coverDir, name))
		}
	}

	mdData, err := ExportToMarkdown(export, covers)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)

	return result, nil
}
