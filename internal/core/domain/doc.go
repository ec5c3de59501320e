// Package domain defines the core business entities for the finder.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - CacheRecord: One cached face descriptor or text card from a channel
//   - SeenState: Seen and skipped item ids plus the crawl high-water mark
//   - ReviewLedger: Per-query searched/reviewed/unreviewed message ids
//   - FaceMatch, TextMatch: Match results returned to callers
//   - Settings: Process-wide configuration created once at startup
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
