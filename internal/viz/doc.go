// Package viz renders load paths in the terminal.
//
//   - [Series] and [LoadPath]: asciigraph series and braille
//     force-displacement curves for stored runs
//   - [Model]: a Bubble Tea view following a run as its steps converge
//   - [RunInteractive]: problem and preset picker that starts a live run
//
// # Key Bindings
//
//	j/k   - Move selection
//	Enter - Select problem, then run preset
//	Esc   - Back to the problem list
//	q     - Quit, cancelling a run in progress
package viz
