// Package moderation implements the decision core of the moderation layer:
// per-type moderator policies, the policy registry, and the state machine
// that moves captured edits through pending, approved and rejected while
// reconciling the outcome back into the live record.
//
// A tracked edit enters through Engine.Submit, which snapshots the subject,
// upserts its moderation record and runs auto-moderation. Human decisions
// arrive through Engine.Approve, Engine.Reject and Engine.SetPending. See
// cmd/modgated for a daemon built on this package.
package moderation
