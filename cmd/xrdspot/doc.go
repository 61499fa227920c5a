// Command xrdspot integrates XRD detector frames into an HDF5 container
// and reduces peak windows of the result.
//
// A TOML settings record names the source frames, the calibration files
// and the container. Typical use:
//
//	xrdspot config init
//	xrdspot config set xrd_path run042.nxs
//	xrdspot process
//	xrdspot peak set 1 --from-tth 9.0 --to-tth 9.6 --from-azi -60 --to-azi 60
//	xrdspot peak reduce 1
//	xrdspot plot peak 1 --out peak1.png
package main
