// Package object reads and writes object headers.
//
// Version 1 headers (files from older libraries and h5py defaults) and
// version 2 "OHDR" headers are read, following continuation blocks. New
// objects are always written as a single-chunk version 2 header whose
// chunk may be padded with a NIL message so later rewrites can reuse the
// same slot.
package object
