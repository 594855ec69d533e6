// Package services wraps HTTP access to the book-cataloging API.
//
// # Client
//
// [Client] is configured once with the API origin and a [TokenSource]. Every request it issues passes
// through an auth-injecting [http.RoundTripper] that reads the token fresh from the source and, when one
// is present, sends it verbatim as the Authorization header. Unauthenticated requests carry no
// Authorization header at all.
//
// The client adds no retries and no timeouts, and does not transform response bodies. [Client.Get],
// [Client.Post] and [Client.Delete] return the raw [APIResponse]; [Client.GetJSON], [Client.PostJSON]
// and [Client.DeleteJSON] decode success bodies and turn any non-2xx status into an [*APIError].
//
// # Error Handling
//
//   - [shared.ErrAPIRequest] : wraps transport failures and every [APIError]
//   - [APIError] : non-2xx response; Message holds the body's "error" field when present
//
// [ErrorMessage] extracts the server-provided message from an error chain, or returns a fallback. Callers
// use it to normalize failures into the user-facing messages shown by resources and the session manager.
package services
