// Package entitlements tracks which plan each user is subscribed to and
// how many page generations they have used in the current billing period.
//
// Reads go through Tracker.GetActiveSubscription and Tracker.Usage. Writes
// that charge quota either use RecordGeneration, a single guarded UPDATE,
// or Reserve inside the caller's transaction followed by Reservation.Commit.
// RollOver handles subscriptions whose period has ended and is driven by
// the laman-rollover binary.
package entitlements
