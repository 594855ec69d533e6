// Package tasks runs long library operations with real-time progress reporting.
//
// # Library Export
//
// [Exporter.Export] snapshots the signed-in user's library:
//
//  1. Loads the library through a [resources.Library]
//  2. With details enabled, fetches every entry's book detail through a [resources.BookDetail] on a small
//     worker pool throttled by a shared [rate.Limiter], picking up personal notes, ISBN and description
//  3. Returns a [models.LibraryExport] ready for the formatter
//
// A failed detail fetch does not fail the export; the entry is kept without enrichment and reported in
// [ExportResult.Failures].
//
// # Progress Reporting
//
// [ProgressUpdate] values are sent on an optional channel with select/default so a slow reader never
// blocks the export.
package tasks
