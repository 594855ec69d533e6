package testing

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"sync"
	"testing"

	"github.com/desertthunder/shelf/internal/models"
)

const (
	MsgInvalidLogin    = "Invalid email or password"
	MsgUnauthenticated = "You need to sign in or sign up before continuing."
	MsgBookNotFound    = "Book not found"
	MsgEntryNotFound   = "Library book not found"
	MsgAlreadyAdded    = "Book already in library"
)

// Request is a request observed by [Backend].
type Request struct {
	Method        string
	Path          string
	Authorization string
	Accept        string
	Body          []byte
}

type failure struct {
	status  int
	message string
}

type account struct {
	password string
	token    string
}

type entry struct {
	models.LibraryEntry
	notes string
}

// Backend is an in-memory fake of the book-cataloging API.
//
// Routes mirror the real service: public catalog reads, token-gated library reads and writes, and sign-in
// returning the token in the Authorization response header. Failures and slow responses can be injected
// per route.
type Backend struct {
	mu       sync.Mutex
	books    []models.Book
	accounts map[string]account
	library  map[string][]entry // by email
	nextID   int
	failures map[string]failure
	holds    map[string]*hold // consumed by the next matching request
	held     []*hold
	requests []Request
	router   *Router
}

// NewBackend creates an empty [Backend].
func NewBackend() *Backend {
	b := &Backend{
		accounts: make(map[string]account),
		library:  make(map[string][]entry),
		nextID:   1,
		failures: make(map[string]failure),
		holds:    make(map[string]*hold),
	}

	r := NewRouter()
	r.Use(b.record, b.inject)
	r.Handle(http.MethodGet, "/books", b.listBooks)
	r.Handle(http.MethodGet, "/books/{id}", b.showBook)
	r.Handle(http.MethodPost, "/users/sign_in", b.signIn)
	r.Handle(http.MethodGet, "/library_books", b.authenticated(b.listLibrary))
	r.Handle(http.MethodPost, "/library_books", b.authenticated(b.createEntry))
	r.Handle(http.MethodDelete, "/library_books/{id}", b.authenticated(b.deleteEntry))
	b.router = r
	return b
}

// Start serves the backend on a local listener closed when the test ends.
func (b *Backend) Start(t testing.TB) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(b.router)
	t.Cleanup(func() {
		b.releaseAll()
		srv.Close()
	})
	return srv
}

func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.router.ServeHTTP(w, r)
}

// AddBook adds a book to the public catalog.
func (b *Backend) AddBook(book models.Book) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.books = append(b.books, book)
}

// AddUser registers an account that signs in with password and receives token.
func (b *Backend) AddUser(email, password, token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts[email] = account{password: password, token: token}
}

// AddEntry puts a catalog book into the user's library and returns the new entry id.
func (b *Backend) AddEntry(email string, bookID models.ID, status models.Status, notes string) models.ID {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := b.newEntry(bookID, status)
	e.notes = notes
	b.library[email] = append(b.library[email], e)
	return e.ID
}

// SeedEntries replaces the user's library with entries, keeping their ids.
func (b *Backend) SeedEntries(email string, entries ...models.LibraryEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	seeded := make([]entry, 0, len(entries))
	for _, e := range entries {
		seeded = append(seeded, entry{LibraryEntry: e})
	}
	b.library[email] = seeded
}

// Library returns a copy of the user's library.
func (b *Backend) Library(email string) []models.LibraryEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.LibraryEntry, 0, len(b.library[email]))
	for _, e := range b.library[email] {
		out = append(out, e.LibraryEntry)
	}
	return out
}

// Fail makes every request matching method and path answer with status and an {"error": message} body.
// An empty message sends a body without the error field.
func (b *Backend) Fail(method, path string, status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[method+" "+path] = failure{status: status, message: message}
}

// Recover removes an injected failure.
func (b *Backend) Recover(method, path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, method+" "+path)
}

type hold struct {
	ch   chan struct{}
	once sync.Once
}

func (h *hold) release() {
	h.once.Do(func() { close(h.ch) })
}

// Hold blocks the next request matching method and path until the returned release func is called
// or the client goes away. Later requests are not held.
func (b *Backend) Hold(method, path string) (release func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	h := &hold{ch: make(chan struct{})}
	b.holds[method+" "+path] = h
	b.held = append(b.held, h)
	return h.release
}

// Requests returns the requests received so far.
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.requests)
}

// Count returns how many received requests match method and path.
func (b *Backend) Count(method, path string) int {
	n := 0
	for _, r := range b.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func (b *Backend) releaseAll() {
	b.mu.Lock()
	held := b.held
	b.holds = make(map[string]*hold)
	b.held = nil
	b.mu.Unlock()
	for _, h := range held {
		h.release()
	}
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))

		b.mu.Lock()
		b.requests = append(b.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			Accept:        r.Header.Get("Accept"),
			Body:          body,
		})
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path

		b.mu.Lock()
		h := b.holds[key]
		delete(b.holds, key)
		f, failing := b.failures[key]
		b.mu.Unlock()

		if h != nil {
			select {
			case <-h.ch:
			case <-r.Context().Done():
				return
			}
		}
		if failing {
			if f.message == "" {
				writeJSON(w, f.status, map[string]any{})
				return
			}
			writeError(w, f.status, f.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type userKey struct{}

func (b *Backend) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, ok := b.userFor(r.Header.Get("Authorization"))
		if !ok {
			writeError(w, http.StatusUnauthorized, MsgUnauthenticated)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userKey{}, email)))
	}
}

func (b *Backend) userFor(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for email, a := range b.accounts {
		if a.token == token {
			return email, true
		}
	}
	return "", false
}

func (b *Backend) findBook(id string) (models.Book, bool) {
	for _, book := range b.books {
		if book.ID.String() == id {
			return book, true
		}
	}
	return models.Book{}, false
}

func (b *Backend) newEntry(bookID models.ID, status models.Status) entry {
	e := entry{LibraryEntry: models.LibraryEntry{
		ID:         models.ID(strconv.Itoa(b.nextID)),
		DatoBookID: bookID,
		Status:     status,
	}}
	b.nextID++
	if book, ok := b.findBook(bookID.String()); ok {
		e.Title = book.Title
		e.Author = book.Author
		e.Cover = book.Cover
		e.Tags = book.Tags
	}
	return e
}

func (b *Backend) listBooks(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	out := make([]map[string]any, 0, len(b.books))
	for _, book := range b.books {
		out = append(out, bookWire(book))
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) showBook(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	email, authed := b.userFor(r.Header.Get("Authorization"))

	b.mu.Lock()
	defer b.mu.Unlock()

	book, ok := b.findBook(id)
	if !ok {
		writeError(w, http.StatusNotFound, MsgBookNotFound)
		return
	}

	out := bookWire(book)
	out["in_library"] = false
	if authed {
		for _, e := range b.library[email] {
			if e.DatoBookID.String() == id {
				out["in_library"] = true
				out["library_status"] = e.Status
				out["library_notes"] = e.notes
				break
			}
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) signIn(w http.ResponseWriter, r *http.Request) {
	var body struct {
		User models.Credentials `json:"user"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request")
		return
	}

	b.mu.Lock()
	a, ok := b.accounts[body.User.Email]
	b.mu.Unlock()

	if !ok || a.password != body.User.Password {
		writeError(w, http.StatusUnauthorized, MsgInvalidLogin)
		return
	}

	w.Header().Set("Authorization", a.token)
	writeJSON(w, http.StatusOK, map[string]any{"email": body.User.Email})
}

func (b *Backend) listLibrary(w http.ResponseWriter, r *http.Request) {
	email, _ := r.Context().Value(userKey{}).(string)

	b.mu.Lock()
	out := make([]map[string]any, 0, len(b.library[email]))
	for _, e := range b.library[email] {
		out = append(out, entryWire(e.LibraryEntry))
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) createEntry(w http.ResponseWriter, r *http.Request) {
	email, _ := r.Context().Value(userKey{}).(string)

	var body struct {
		LibraryBook models.NewLibraryBook `json:"library_book"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.LibraryBook.DatoBookID == "" {
		writeError(w, http.StatusUnprocessableEntity, "dato_book_id is required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, e := range b.library[email] {
		if e.DatoBookID == body.LibraryBook.DatoBookID {
			writeError(w, http.StatusUnprocessableEntity, MsgAlreadyAdded)
			return
		}
	}

	e := b.newEntry(body.LibraryBook.DatoBookID, body.LibraryBook.Status)
	b.library[email] = append(b.library[email], e)
	writeJSON(w, http.StatusCreated, entryWire(e.LibraryEntry))
}

func (b *Backend) deleteEntry(w http.ResponseWriter, r *http.Request) {
	email, _ := r.Context().Value(userKey{}).(string)
	id := r.PathValue("id")

	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.library[email]
	i := slices.IndexFunc(entries, func(e entry) bool { return e.ID.String() == id })
	if i < 0 {
		writeError(w, http.StatusNotFound, MsgEntryNotFound)
		return
	}
	b.library[email] = slices.Delete(entries, i, i+1)
	w.WriteHeader(http.StatusNoContent)
}

// wireID renders numeric ids as JSON numbers, the way the real API does.
func wireID(id models.ID) json.RawMessage {
	if _, err := strconv.Atoi(id.String()); err == nil {
		return json.RawMessage(id.String())
	}
	data, _ := json.Marshal(id.String())
	return data
}

func bookWire(book models.Book) map[string]any {
	out := map[string]any{
		"id":     wireID(book.ID),
		"title":  book.Title,
		"author": book.Author,
	}
	if book.ISBN != "" {
		out["isbn"] = book.ISBN
	}
	if book.Description != "" {
		out["description"] = book.Description
	}
	if book.Cover != nil {
		out["cover"] = book.Cover
	}
	if len(book.Tags) > 0 {
		out["tags"] = book.Tags.String()
	}
	return out
}

func entryWire(e models.LibraryEntry) map[string]any {
	out := map[string]any{
		"id":           wireID(e.ID),
		"dato_book_id": e.DatoBookID.String(),
		"title":        e.Title,
		"author":       e.Author,
		"status":       e.Status,
	}
	if e.Cover != nil {
		out["cover"] = e.Cover
	}
	if len(e.Tags) > 0 {
		out["tags"] = e.Tags.String()
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
