// Package alloc hands out byte ranges inside a container file that is being
// written.
//
// Space comes from the end of the file unless an earlier Free released a
// block large enough, in which case the first fitting block is reused. A
// block freed at the very end of the file pulls the end-of-file address back
// so the file can be truncated on flush. Free space is not persisted: a file
// reopened later starts with an empty free list.
package alloc
