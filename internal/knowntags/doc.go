// Package knowntags maintains per-user and anonymous tag usage counters.
//
// A counter is the number of visible, non-deleted items whose computed tags
// contain the tag. Counters are adjusted incrementally by Increment and
// Decrement when an item's computed tags change, and can be recomputed from
// scratch by Rebuild, which scans computed tags in ordinal batches so that a
// rebuild never holds the whole catalog in memory.
//
// Functions taking a Store run on whatever connection they are given, so
// callers can make adjustments part of a larger transaction. Index wraps a
// database and owns its transactions.
package knowntags
