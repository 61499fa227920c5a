package store

import "strconv"

// Paths of the container layout.
const (
	ParamsGroup   = Root + "/params"
	FrameNumPath  = ParamsGroup + "/frame_num"
	FPSPath       = ParamsGroup + "/fps"
	NptTTHPath    = ParamsGroup + "/npt_tth"
	NptAziPath    = ParamsGroup + "/npt_azi"
	ArraysGroup   = Root + "/arr"
	FrameArrPath  = ArraysGroup + "/frame"
	TTHArrPath    = ArraysGroup + "/tth"
	AziArrPath    = ArraysGroup + "/azi"
	PatternPath   = Root + "/pattern"
	CakePath      = Root + "/cake"
	PeaksGroup    = Root + "/peak"
	PatternQuery  = "pattern"
	CakeQuery     = "cake"
	FrameArrQuery = "arr/frame"
	TTHArrQuery   = "arr/tth"
	AziArrQuery   = "arr/azi"
)

// PeakGroup returns the group holding the reduced arrays of peak n.
func PeakGroup(n int) string { return PeaksGroup + "/" + strconv.Itoa(n) }

// PeakTTHPath returns the path of peak n's 2theta time series.
func PeakTTHPath(n int) string { return PeakGroup(n) + "/tth" }

// PeakAziPath returns the path of peak n's azimuth time series.
func PeakAziPath(n int) string { return PeakGroup(n) + "/azi" }
