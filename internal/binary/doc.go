// Package binary holds the byte-level codecs shared by every on-disk
// structure in the container format.
//
// Two halves live here. [Reader] decodes from an io.ReaderAt at an explicit
// position, which is how the tree walkers hop between addresses. [Encoder]
// builds a structure in memory so it can be checksummed and then written
// with a single WriteAt.
//
// Offsets and lengths are variable-width; the width comes from the
// superblock and travels with every [Reader] and [Encoder] through [Sizes].
package binary
