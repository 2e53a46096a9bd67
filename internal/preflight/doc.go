// Package preflight provides readiness checks for the external tools,
// translation services, and filesystem paths subflow depends on.
//
// `subflow check` prints every result. `subflow run` and `subflow video` run
// the local checks before the batch starts so a missing binary or unwritable
// output directory fails fast instead of once per video. Network checks only
// run for the configured translation provider.
package preflight
