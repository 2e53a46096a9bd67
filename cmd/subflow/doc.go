// Package main hosts the subflow CLI.
//
// The Cobra command tree resolves configuration, builds the logger, and
// constructs the transcription, translation, and transcoding collaborators
// once before handing them to the batch orchestrator. Commands cover batch
// runs, single videos, preflight checks, the run ledger, and configuration
// scaffolding.
package main
