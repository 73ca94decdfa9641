// Package pipeline sequences the four batch stages (data collection,
// training, evaluation, deployment) with short-circuit gating and aggregates
// one Report per full run.
//
// The orchestrator never lets a collaborator error escape: failures are
// converted to a false/empty stage result and logged. Callers above this
// package only ever see typed results.
package pipeline
