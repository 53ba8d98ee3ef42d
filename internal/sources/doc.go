// Package sources provides interfaces and implementations for retrieving
// leaderboard snapshots from external sources.
//
// A snapshot is a spreadsheet export (xlsx or csv) with one row per
// participant. Handlers fetch the raw bytes, hash them for change detection,
// decode the table and hand the rows to the normalize package, which turns
// them into canonical participants.
//
// Architecture:
//   - SourceHandler: Interface for fetching and validating snapshots
//   - SourceHandlerFactory: Creates the handler for a configured source type
//   - FetchResult: Canonical participants with hash and row statistics
//
// Current implementations:
//   - file: reads the snapshot from the local filesystem
//   - http: downloads the snapshot from an http(s) URL
//   - s3: reads the snapshot from an S3 compatible bucket such as Cloudflare R2
package sources
