// Package heap reads local heaps, the name storage behind symbol-table
// groups.
package heap
