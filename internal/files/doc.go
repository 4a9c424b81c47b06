// Package files discovers raw electrophysiology inputs on disk: .abf
// files and PrairieView acquisition folders under a base directory,
// name-sorted so sweep numbering matches acquisition order.
//
// Example usage:
//
//	discovery := files.NewDiscovery("/path/to/base")
//	abfFiles, err := discovery.FindABFFiles("raw")
package files
