// Package jsonfile persists the review ledger and the search history as JSON
// documents. Every write reserializes the whole document to a temp file and
// renames it into place, so a crash leaves either the old or the new file.
package jsonfile
