// Package resources holds the client-side state for each API collection a view works with.
//
// There are three independent resources:
//   - [Catalog] : the public book list (read only)
//   - [BookDetail] : one book with the caller's library membership, plus add-to-library
//   - [Library] : the signed-in user's library entries, plus remove
//
// Each resource guards its state with its own mutex and hands out copies through State. Operations
// block until the request settles and are safe to call from multiple goroutines; views run them from
// background commands and re-render through the callback registered with [WithOnChange].
//
// # Activations
//
// Every load starts a new activation. Starting one cancels the previous activation's context and bumps
// a generation counter, so a slow response for a superseded request is dropped instead of overwriting
// newer state.
//
// # Mutations
//
// Writes go through [Mutation], which names its update policy. [Authoritative] mutations refetch the
// affected resource after the write succeeds; [Optimistic] mutations patch local state without a
// refetch. Both report a [Result] and normalize failures the same way: the server's "error" message when
// present, otherwise a fixed fallback.
package resources
