// Package btree walks version 1 B-trees: the group trees that index
// symbol-table links and the chunk trees that index chunked datasets.
package btree
