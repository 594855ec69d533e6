// Package models defines the book-cataloging API's resources as the client sees them.
//
// All values are transient copies of backend data:
//   - [Book] : a catalog record (public, read-only)
//   - [BookDetail] : a catalog record plus the caller's library membership
//   - [LibraryEntry] : a user-owned join between the authenticated user and a book
//
// Wire quirks are absorbed at the JSON boundary. Identifiers arrive as numbers or strings and are held as [ID];
// tags arrive as one comma-joined string and are held as ordered [Tags]; the cover is an optional object.
package models
