// Package filter undoes the filter pipeline applied to stored chunks.
//
// Deflate, shuffle and fletcher32 are supported. Filters run in reverse
// of their pipeline order, and a chunk's filter mask can switch
// individual stages off.
package filter
