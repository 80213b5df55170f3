// Package levelstore keeps the level documents received by the level
// publishing API.
//
// Two backends implement Store: FileStore writes one JSON file per level
// and SQLiteStore keeps them in a SQLite database (modernc.org/sqlite, no
// cgo) migrated from the embedded migrations directory. Documents are
// stored verbatim; only their id is read.
package levelstore
