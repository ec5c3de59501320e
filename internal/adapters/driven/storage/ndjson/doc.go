// Package ndjson provides the file-backed driven.CacheStore.
//
// # Layout
//
//	{root}/{channel}/{year}.ndjson   one JSON record per line, append-only
//	{root}/{channel}/skipped.json    sorted JSON array of skipped ids
//
// Year files are partitioned by the record's capture date in UTC. Malformed
// lines are logged and skipped; they never abort a scan.
//
// Records written by older versions of the crawler use the keys msgId, date,
// sourceImageUrl and link; they are read transparently.
package ndjson
