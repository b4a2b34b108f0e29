// Package history records finished and in-flight jobs in a SQLite database.
//
// The history is informational: nothing in the workflow reads it back to make
// decisions, and a missing or disabled database never blocks a job. Rows are
// written when a job starts and updated when it ends; rows still marked
// running when the store is opened belonged to a process that died and are
// marked interrupted.
//
// Schema changes bump schemaVersion in schema.go; users delete the database to
// adopt the new schema.
package history
