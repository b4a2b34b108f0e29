// Package worker runs model worker subprocesses and exchanges JSON lines
// with them.
//
// A worker prints a ready (or error) message on stdout once its model is
// loaded. After that every request line carries an id and a method, and the
// worker answers with exactly one response line carrying the same id. Requests
// are issued one at a time. Stderr is kept for diagnostics and surfaces in
// errors when the worker fails.
package worker
