// Package integrate turns detector frames into diffraction patterns.
//
// The azimuthal integration itself is done by an Engine. Adapter binds an
// engine to one calibration and an optional pixel mask, checks what the
// engine returns and labels every failure with the frame it came from.
// Exec is the production engine: it runs an external helper program and
// exchanges requests and results with it through HDF5 files.
package integrate
