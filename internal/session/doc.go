// Package session owns the authentication token and the login/logout lifecycle.
//
// A [Session] holds the token in two places: durable [store.Storage] so it survives restarts, and an
// in-memory mirror guarded by a mutex that every outgoing request reads. Writes go to storage first and
// are mirrored only once persisted, so the two copies agree at every observable point.
//
// [Manager] performs sign-in against the API and updates the session. Sign-in never returns a Go error;
// failures come back as a [LoginResult] carrying a user-facing message.
package session
