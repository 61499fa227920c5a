// Package message decodes and encodes the object header messages the
// container engine understands.
//
// Decoded: dataspace, datatype, data layout, filter pipeline, link, link
// info, symbol table and continuation. Everything else, attributes
// included, is kept as [Unknown] so a header can still be walked.
//
// Encoded: dataspace, datatype (integer, float and fixed-length string),
// contiguous and compact layouts, fill value, link, link info and group
// info. These are the pieces needed to build groups and contiguous
// datasets in files this module creates.
package message
