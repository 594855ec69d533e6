package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/shelf/internal/models"
	"github.com/desertthunder/shelf/internal/shared"
	"github.com/desertthunder/shelf/internal/store"
	tu "github.com/desertthunder/shelf/internal/testing"
	"github.com/urfave/cli/v3"
)

const (
	testEmail    = "reader@example.com"
	testPassword = "secret"
	testToken    = "abc123"
)

type fixture struct {
	runner  *Runner
	backend *tu.Backend
	storage *store.Memory
	output  *bytes.Buffer
}

func newFixture(t *testing.T, signedIn bool) *fixture {
	t.Helper()

	backend := tu.NewBackend()
	backend.AddBook(models.Book{ID: "1", Title: "Dune", Author: "Frank Herbert", Tags: models.Tags{"scifi"}})
	backend.AddBook(models.Book{ID: "2", Title: "Emma", Author: "Jane Austen"})
	backend.AddUser(testEmail, testPassword, testToken)
	srv := backend.Start(t)

	storage := store.NewMemory()
	if signedIn {
		if err := storage.Set(context.Background(), "token", testToken); err != nil {
			t.Fatalf("failed to seed token: %v", err)
		}
	}

	config := shared.DefaultConfig()
	config.API.BaseURL = srv.URL
	output := &bytes.Buffer{}

	runner := NewRunner(RunnerOpts{
		Config:  config,
		Storage: storage,
		Logger:  log.New(io.Discard),
		Output:  output,
		Input:   strings.NewReader(""),
	})
	return &fixture{runner: runner, backend: backend, storage: storage, output: output}
}

func (f *fixture) run(args ...string) error {
	app := &cli.Command{Name: "shelf", Commands: f.runner.register()}
	return app.Run(context.Background(), append([]string{"shelf"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			storage := store.NewMemory()

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Storage:    storage,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.storage != storage {
				t.Error("expected storage to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})

			if runner.config == nil {
				t.Fatal("expected default config to be set")
			}
			if runner.config.API.BaseURL != shared.DefaultBaseURL {
				t.Errorf("expected default base URL, got %s", runner.config.API.BaseURL)
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil httpClient uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{HTTPClient: nil})

			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})

		t.Run("with configPath sets field", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: "/test/path/config.toml"})

			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if result := output.String(); result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result := output.String(); result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}

		for _, name := range []string{"setup", "login", "logout", "status", "catalog", "book", "library", "tui"} {
			if !names[name] {
				t.Errorf("expected %s command to be registered", name)
			}
		}
	})
}

func TestSessionCommands(t *testing.T) {
	t.Run("login with password flag stores token", func(t *testing.T) {
		f := newFixture(t, false)

		if err := f.run("login", "--email", testEmail, "--password", testPassword); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		token, ok, _ := f.storage.Get(context.Background(), "token")
		if !ok || token != testToken {
			t.Errorf("expected stored token %q, got %q", testToken, token)
		}
		if !strings.Contains(f.output.String(), "Signed in as "+testEmail) {
			t.Errorf("expected confirmation, got %q", f.output.String())
		}
	})

	t.Run("login reads password from input", func(t *testing.T) {
		f := newFixture(t, false)
		f.runner.input = strings.NewReader(testPassword + "\n")

		if err := f.run("login", "--email", testEmail); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !f.runner.manager.Session().IsAuthenticated() {
			t.Error("expected session to be authenticated")
		}
	})

	t.Run("login failure reports server message", func(t *testing.T) {
		f := newFixture(t, false)

		err := f.run("login", "--email", testEmail, "--password", "wrong")
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Fatalf("expected ErrAuthFailed, got %v", err)
		}
		if !strings.Contains(err.Error(), tu.MsgInvalidLogin) {
			t.Errorf("expected server message in error, got %v", err)
		}
		if _, ok, _ := f.storage.Get(context.Background(), "token"); ok {
			t.Error("expected no token to be stored")
		}
	})

	t.Run("login rejects malformed email", func(t *testing.T) {
		f := newFixture(t, false)

		err := f.run("login", "--email", "not-an-email", "--password", testPassword)
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
		if !strings.Contains(err.Error(), "email must be a valid email address") {
			t.Errorf("expected field message, got %v", err)
		}
		if n := f.backend.Count(http.MethodPost, "/users/sign_in"); n != 0 {
			t.Errorf("expected no sign-in requests, got %d", n)
		}
	})

	t.Run("login without password", func(t *testing.T) {
		f := newFixture(t, false)
		f.runner.input = strings.NewReader("\n")

		err := f.run("login", "--email", testEmail)
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
		if !strings.Contains(err.Error(), "password is required") {
			t.Errorf("expected field message, got %v", err)
		}
	})

	t.Run("logout clears token", func(t *testing.T) {
		f := newFixture(t, true)

		if err := f.run("logout"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, ok, _ := f.storage.Get(context.Background(), "token"); ok {
			t.Error("expected token to be deleted")
		}
		if !strings.Contains(f.output.String(), "Signed out") {
			t.Errorf("expected confirmation, got %q", f.output.String())
		}
	})

	t.Run("status as JSON", func(t *testing.T) {
		f := newFixture(t, true)

		if err := f.run("status", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var report statusReport
		if err := json.Unmarshal(f.output.Bytes(), &report); err != nil {
			t.Fatalf("failed to decode output: %v", err)
		}
		if !report.Authenticated {
			t.Error("expected authenticated status")
		}
		if report.API != f.runner.config.API.BaseURL {
			t.Errorf("expected API %s, got %s", f.runner.config.API.BaseURL, report.API)
		}
	})
}

func TestCatalogCommands(t *testing.T) {
	t.Run("list prints books", func(t *testing.T) {
		f := newFixture(t, false)

		if err := f.run("catalog", "list"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		out := f.output.String()
		if !strings.Contains(out, "Catalog: 2 books") {
			t.Errorf("expected header, got %q", out)
		}
		if !strings.Contains(out, "[1] Frank Herbert - Dune (scifi)") {
			t.Errorf("expected Dune line, got %q", out)
		}
	})

	t.Run("list as JSON", func(t *testing.T) {
		f := newFixture(t, false)

		if err := f.run("catalog", "list", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var books []models.Book
		if err := json.Unmarshal(f.output.Bytes(), &books); err != nil {
			t.Fatalf("failed to decode output: %v", err)
		}
		if len(books) != 2 {
			t.Errorf("expected 2 books, got %d", len(books))
		}
	})

	t.Run("list failure", func(t *testing.T) {
		f := newFixture(t, false)
		f.backend.Fail(http.MethodGet, "/books", http.StatusInternalServerError, "Catalog offline")

		err := f.run("catalog", "list")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
		if !strings.Contains(err.Error(), "Catalog offline") {
			t.Errorf("expected server message, got %v", err)
		}
	})

	t.Run("show as guest", func(t *testing.T) {
		f := newFixture(t, false)

		if err := f.run("catalog", "show", "1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		out := f.output.String()
		if !strings.Contains(out, "Author: Frank Herbert") {
			t.Errorf("expected author, got %q", out)
		}
		if !strings.Contains(out, models.PlaceholderCoverURL) {
			t.Errorf("expected placeholder cover, got %q", out)
		}
		if !strings.Contains(out, "Log in to add") {
			t.Errorf("expected login hint, got %q", out)
		}
	})

	t.Run("show library membership", func(t *testing.T) {
		f := newFixture(t, true)
		f.backend.AddEntry(testEmail, "1", models.StatusToRead, "Gift from Sam")

		if err := f.run("catalog", "show", "1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		out := f.output.String()
		if !strings.Contains(out, "In your library (to read)") {
			t.Errorf("expected membership, got %q", out)
		}
		if !strings.Contains(out, "Notes: Gift from Sam") {
			t.Errorf("expected notes, got %q", out)
		}
	})

	t.Run("show unknown book", func(t *testing.T) {
		f := newFixture(t, false)

		err := f.run("catalog", "show", "99")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
		if !strings.Contains(err.Error(), tu.MsgBookNotFound) {
			t.Errorf("expected server message, got %v", err)
		}
	})

	t.Run("show without id", func(t *testing.T) {
		f := newFixture(t, false)

		if err := f.run("catalog", "show"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestBookAdd(t *testing.T) {
	t.Run("requires login", func(t *testing.T) {
		f := newFixture(t, false)

		if err := f.run("book", "add", "1"); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Fatalf("expected ErrNotAuthenticated, got %v", err)
		}
		if n := f.backend.Count(http.MethodPost, "/library_books"); n != 0 {
			t.Errorf("expected no create requests, got %d", n)
		}
	})

	t.Run("adds book", func(t *testing.T) {
		f := newFixture(t, true)

		if err := f.run("book", "add", "2"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		lib := f.backend.Library(testEmail)
		if len(lib) != 1 || lib[0].DatoBookID != "2" || lib[0].Status != models.StatusToRead {
			t.Errorf("expected Emma as to-read, got %+v", lib)
		}
		if !strings.Contains(f.output.String(), "Added Emma") {
			t.Errorf("expected confirmation, got %q", f.output.String())
		}
	})

	t.Run("already in library", func(t *testing.T) {
		f := newFixture(t, true)
		f.backend.AddEntry(testEmail, "2", models.StatusReading, "")

		if err := f.run("book", "add", "2"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if n := f.backend.Count(http.MethodPost, "/library_books"); n != 0 {
			t.Errorf("expected no create requests, got %d", n)
		}
		if !strings.Contains(f.output.String(), "already in your library (reading)") {
			t.Errorf("expected notice, got %q", f.output.String())
		}
	})

	t.Run("write failure", func(t *testing.T) {
		f := newFixture(t, true)
		f.backend.Fail(http.MethodPost, "/library_books", http.StatusUnprocessableEntity, "")

		err := f.run("book", "add", "2")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
		if !strings.Contains(err.Error(), "Failed to add to library") {
			t.Errorf("expected fallback message, got %v", err)
		}
	})
}

func TestLibraryCommands(t *testing.T) {
	t.Run("list requires login", func(t *testing.T) {
		f := newFixture(t, false)

		if err := f.run("library", "list"); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Fatalf("expected ErrNotAuthenticated, got %v", err)
		}
		if n := f.backend.Count(http.MethodGet, "/library_books"); n != 0 {
			t.Errorf("expected no library requests, got %d", n)
		}
	})

	t.Run("list prints entries", func(t *testing.T) {
		f := newFixture(t, true)
		id := f.backend.AddEntry(testEmail, "1", models.StatusReading, "")

		if err := f.run("library", "list"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		out := f.output.String()
		if !strings.Contains(out, "Library: 1 books") {
			t.Errorf("expected header, got %q", out)
		}
		if !strings.Contains(out, "["+id.String()+"] Frank Herbert - Dune [reading]") {
			t.Errorf("expected entry line, got %q", out)
		}
	})

	t.Run("list empty", func(t *testing.T) {
		f := newFixture(t, true)

		if err := f.run("library", "list"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(f.output.String(), "Your library is empty") {
			t.Errorf("expected empty notice, got %q", f.output.String())
		}
	})

	t.Run("remove entry", func(t *testing.T) {
		f := newFixture(t, true)
		id := f.backend.AddEntry(testEmail, "1", models.StatusReading, "")

		if err := f.run("library", "remove", id.String()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if lib := f.backend.Library(testEmail); len(lib) != 0 {
			t.Errorf("expected empty library, got %+v", lib)
		}
		if !strings.Contains(f.output.String(), "Removed Dune") {
			t.Errorf("expected confirmation, got %q", f.output.String())
		}
	})

	t.Run("remove unknown entry", func(t *testing.T) {
		f := newFixture(t, true)

		if err := f.run("library", "remove", "42"); !errors.Is(err, shared.ErrEntryNotFound) {
			t.Fatalf("expected ErrEntryNotFound, got %v", err)
		}
		if n := f.backend.Count(http.MethodDelete, "/library_books/42"); n != 0 {
			t.Errorf("expected no delete requests, got %d", n)
		}
	})
}

func TestLibraryExport(t *testing.T) {
	t.Run("json with details", func(t *testing.T) {
		f := newFixture(t, true)
		f.backend.AddEntry(testEmail, "1", models.StatusReading, "Loved it")
		path := filepath.Join(t.TempDir(), "out.json")

		if err := f.run("library", "export", "--format", "json", "--output", path, "--details"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var export models.LibraryExport
		if err := json.Unmarshal([]byte(tu.MustReadFile(t, path)), &export); err != nil {
			t.Fatalf("failed to decode export: %v", err)
		}
		if !export.Detailed || len(export.Entries) != 1 {
			t.Fatalf("expected 1 detailed entry, got %+v", export)
		}
		if export.Entries[0].Notes != "Loved it" {
			t.Errorf("expected notes, got %q", export.Entries[0].Notes)
		}
		if !strings.Contains(f.output.String(), "Export Complete!") {
			t.Errorf("expected summary, got %q", f.output.String())
		}
	})

	t.Run("csv", func(t *testing.T) {
		f := newFixture(t, true)
		f.backend.AddEntry(testEmail, "2", models.StatusToRead, "")
		path := filepath.Join(t.TempDir(), "out.csv")

		if err := f.run("library", "export", "-f", "csv", "-o", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		content := tu.MustReadFile(t, path)
		if !strings.Contains(content, "Emma") {
			t.Errorf("expected Emma in CSV, got %q", content)
		}
	})

	t.Run("markdown directory", func(t *testing.T) {
		f := newFixture(t, true)
		f.backend.AddEntry(testEmail, "1", models.StatusRead, "")
		dir := filepath.Join(t.TempDir(), "library")

		if err := f.run("library", "export", "--format", "md", "--output", dir); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		tu.AssertFileExists(t, filepath.Join(dir, "README.md"))
	})

	t.Run("covers need markdown", func(t *testing.T) {
		f := newFixture(t, true)

		if err := f.run("library", "export", "--format", "json", "--covers"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		f := newFixture(t, true)

		if err := f.run("library", "export", "--format", "xml"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("requires login", func(t *testing.T) {
		f := newFixture(t, false)

		if err := f.run("library", "export"); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}

func TestSetup(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv(shared.EnvDatabasePath, filepath.Join(tmpDir, "data", "shelf.db"))

	configPath := filepath.Join(tmpDir, "config.toml")
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{ConfigPath: configPath, Logger: log.New(io.Discard), Output: output})

	if err := runner.Setup(context.Background(), &cli.Command{}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	tu.AssertFileExists(t, configPath)
	tu.AssertFileExists(t, filepath.Join(tmpDir, "data", "shelf.db"))
	if !strings.Contains(output.String(), "Created "+configPath) {
		t.Errorf("expected created message, got %q", output.String())
	}

	output.Reset()
	if err := runner.Setup(context.Background(), &cli.Command{}); err != nil {
		t.Fatalf("expected second setup to succeed, got %v", err)
	}
	if !strings.Contains(output.String(), "Using "+configPath) {
		t.Errorf("expected existing config message, got %q", output.String())
	}
}
