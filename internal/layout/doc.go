// Package layout reads dataset storage: compact, contiguous and chunked.
//
// Every layout answers ReadSlice, which returns a row-major hyperslab of
// raw element bytes. Contiguous storage reads only the outer-dimension
// rows the slab touches; chunked storage decodes only the chunks that
// overlap it. Unallocated storage reads as zeros.
//
// Chunk indexes understood: version 1 B-tree, single chunk, implicit,
// fixed array, and extensible arrays whose elements fit in the index
// block.
package layout
