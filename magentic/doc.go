// Package magentic implements the bounded multi-round planner/delegator.
// A manager policy produces a task plan, the engine dispatches the plan's
// assignments to specialist participants concurrently, merges their
// contributions into a progress ledger, and repeats until progress bounds
// are hit: round exhaustion forces a finalize, stall/reset exhaustion
// fails the run.
//
// Every ledger-mutating transition persists a checkpoint, so partially
// completed runs resume from where they suspended instead of restarting.
// The optional plan-review gate uses the same mechanism: the run is
// parked as a checkpoint in the review-pending state and picked up again
// by an external approve or reject call, holding no goroutine while it
// waits.
package magentic
