// Package runstore persists batch runs in a SQLite ledger so past outcomes can
// be listed with `subflow history`.
//
// One row is kept per run, per video within a run, and per language within a
// video. The schema is created on first open and guarded by a version number;
// writes retry briefly when another process holds the database.
package runstore
