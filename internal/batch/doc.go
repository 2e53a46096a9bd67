// Package batch turns a directory of videos into pipeline jobs and runs them
// with bounded parallelism, isolating every failure to its own video.
//
// The directory is listed once, non-recursively, when a run starts. An
// exclusive lock on the output directory keeps two runs from writing the same
// artifacts.
package batch
