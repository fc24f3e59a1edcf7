// Package main hosts the sup2pgm entrypoint and command graph.
//
// The root command converts one BluRay SUP subtitle stream into numbered PGM
// images plus a cue index; probe lists the packets of a stream; batch converts
// several files concurrently; config init writes a sample configuration.
// Decoding lives in internal/pgs and the run wiring in internal/convert, so
// this package only resolves flags, configuration and terminal output.
package main
