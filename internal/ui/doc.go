// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI is a thin view over the resources package:
//  1. [CatalogView] : Browse the public catalog
//  2. [DetailView] : Inspect one book and add it to the library
//  3. [LibraryView] : Browse and remove library entries
//  4. [LoginView] : Sign in with email and password
//
// Resource operations run as tea commands. Every resource is created with a change callback that signals
// a buffered channel; a waiting command turns each signal into a message, so loading and error states
// re-render as soon as they change. Results of writes (add, remove, login) arrive as [Msg] values.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, a, d, r, q) with contextual help displayed via
// charmbracelet/bubbles/help.
package ui
