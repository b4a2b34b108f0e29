// Package textutil holds small string helpers for building output file names.
package textutil
