// Package dtype converts raw element bytes to Go values and back.
//
// Only the classes a diffraction pipeline stores are handled: integers
// and IEEE floats of any byte order, and fixed-length strings.
package dtype
