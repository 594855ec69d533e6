package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// PlaceholderCoverURL is shown for books without a cover.
const PlaceholderCoverURL = "https://via.placeholder.com/300x450?text=No+Cover"

// ID is an opaque resource identifier.
//
// The API emits numeric ids for books and library entries; ids typed by users arrive as strings.
// Both decode to the same textual form.
type ID string

// UnmarshalJSON accepts a JSON string or number.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Cover is a book cover image.
type Cover struct {
	URL string `json:"url"`
}

// URLOr returns the cover URL, or fallback when the cover is missing or empty.
func (c *Cover) URLOr(fallback string) string {
	if c == nil || c.URL == "" {
		return fallback
	}
	return c.URL
}

// Tags is an ordered tag list, serialized by the API as a comma-joined string.
type Tags []string

// ParseTags splits a comma-joined tag string, trimming whitespace and dropping empty items.
func ParseTags(s string) Tags {
	var tags Tags
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			tags = append(tags, part)
		}
	}
	return tags
}

// String joins tags back into the wire form.
func (t Tags) String() string {
	return strings.Join(t, ",")
}

func (t Tags) MarshalJSON() ([]byte, error) {
	if len(t) == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts the comma-joined string form, null, or a JSON array of strings.
func (t *Tags) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*t = nil
		return nil
	case len(data) > 0 && data[0] == '[':
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*t = ParseTags(strings.Join(items, ","))
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid tags %s: %w", data, err)
	}
	*t = ParseTags(s)
	return nil
}

// Status is a library entry's reading status. The set is open; unknown values are kept as-is.
type Status string

const (
	StatusToRead  Status = "to-read"
	StatusReading Status = "reading"
	StatusRead    Status = "read"
)

// Label renders the status for display ("to-read" becomes "to read").
func (s Status) Label() string {
	return strings.ReplaceAll(string(s), "-", " ")
}

// Book is a catalog record.
type Book struct {
	ID          ID     `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	ISBN        string `json:"isbn,omitempty"`
	Description string `json:"description,omitempty"`
	Cover       *Cover `json:"cover,omitempty"`
	Tags        Tags   `json:"tags,omitempty"`
}

// CoverURL returns the cover URL or [PlaceholderCoverURL].
func (b Book) CoverURL() string {
	return b.Cover.URLOr(PlaceholderCoverURL)
}

// BookDetail is a [Book] plus the authenticated caller's library membership.
//
// LibraryStatus and LibraryNotes are only meaningful when InLibrary is true and are cleared otherwise.
type BookDetail struct {
	Book
	InLibrary     bool   `json:"in_library"`
	LibraryStatus Status `json:"library_status,omitempty"`
	LibraryNotes  string `json:"library_notes,omitempty"`
}

// UnmarshalJSON decodes the detail representation and enforces the membership invariant.
func (d *BookDetail) UnmarshalJSON(data []byte) error {
	type alias BookDetail
	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*d = BookDetail(raw)
	if !d.InLibrary {
		d.LibraryStatus = ""
		d.LibraryNotes = ""
	}
	return nil
}

// Library returns the caller's status and notes for this book; ok is false when the book is not in the library.
func (d BookDetail) Library() (status Status, notes string, ok bool) {
	if !d.InLibrary {
		return "", "", false
	}
	return d.LibraryStatus, d.LibraryNotes, true
}

// LibraryEntry is a book in the authenticated user's library. ID identifies the entry, not the book.
type LibraryEntry struct {
	ID         ID     `json:"id"`
	DatoBookID ID     `json:"dato_book_id"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	Cover      *Cover `json:"cover,omitempty"`
	Tags       Tags   `json:"tags,omitempty"`
	Status     Status `json:"status"`
}

// CoverURL returns the cover URL or [PlaceholderCoverURL].
func (e LibraryEntry) CoverURL() string {
	return e.Cover.URLOr(PlaceholderCoverURL)
}

// NewLibraryBook is the create request body for a library entry.
type NewLibraryBook struct {
	DatoBookID ID     `json:"dato_book_id"`
	Status     Status `json:"status"`
}

// Credentials is the sign-in request body payload.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ExportEntry is a library entry enriched for export. Notes, ISBN and Description are only filled when
// the book detail was fetched.
type ExportEntry struct {
	LibraryEntry
	ISBN        string `json:"isbn,omitempty"`
	Description string `json:"description,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// LibraryExport is a snapshot of a user's library.
type LibraryExport struct {
	ExportedAt time.Time     `json:"exported_at"`
	Source     string        `json:"source"`
	Detailed   bool          `json:"detailed"`
	Entries    []ExportEntry `json:"entries"`
}
