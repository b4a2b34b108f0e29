// Package mbart runs an mBART-50 many-to-many model in a worker process and
// adapts it to translation.Model.
package mbart
