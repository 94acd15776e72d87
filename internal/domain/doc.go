// Package domain holds the planning poker data model: sessions, participants,
// votes and the snapshot views handed to the outside world.
//
// Sessions are mutable and owned by the store; everything that leaves the store
// is a Snapshot. Snapshots redact vote values until the round is revealed, so
// no downstream component can leak a hidden vote.
package domain
