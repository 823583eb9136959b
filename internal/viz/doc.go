// Package viz renders simulation output for the terminal: styled run
// summaries, asciigraph time series of the global observables, and a
// character map of the director field.
package viz
