// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - CacheStore: Year-partitioned channel records and skip sets
//   - LedgerStore: Review ledger persistence
//   - HistoryStore: Search history persistence
//   - ItemFetcher: Batches of new channel items (one per source type)
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - DescriptorExtractor: Face detection. Without it face crawls and image
//     searches are disabled.
//   - MessageLookup: Original message text. Without it face matches are
//     returned without text.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
