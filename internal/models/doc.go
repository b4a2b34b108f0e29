// Package models locates installed model weights and starts the workers
// that serve them.
//
// Weights live under <models_dir>/<kind>/<name>. The registry never downloads
// anything; a missing directory is reported as *UnavailableError without any
// retry.
package models
