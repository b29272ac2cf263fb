// Package sweep runs the information-flow analysis over every configuration
// cell of a revision.
//
// The matrix is exception mode (ignored, then honored) crossed with eight
// precision levels, always in that order. Each cell truncates its own
// report before it runs, so a re-run never shows output from an earlier
// one. Cells run strictly one after another.
package sweep
