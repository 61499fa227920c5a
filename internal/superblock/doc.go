// Package superblock locates and decodes the superblock that anchors a
// container file, and encodes the version 3 superblock used for files this
// module writes.
//
// Versions 0 and 1 carry the root group as a symbol table entry whose
// scratch pad may cache the root B-tree and local heap addresses. Versions 2
// and 3 point straight at the root object header and are protected by a
// lookup3 checksum.
package superblock
