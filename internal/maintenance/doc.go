/*
Package maintenance keeps computed tags and known tags counters in step with
item mutations, and runs the periodic full rebuilds.

# Incremental updates

Every mutation runs in one database transaction. After the item row changes,
the closure of the item (and, when asked, of its whole subtree) is
recomputed, compared with the stored closure, and only the difference is
applied to the counters of each scope that can see the item:

  - the owner
  - every user listed in the item permissions
  - the anonymous scope, when the owner is public

Deleted items keep an up to date closure but never contribute to counters.

# Full rebuilds

RebuildAll recounts every user scope plus the anonymous scope with a bounded
worker pool sized by the workers package, then removes zero counters. The
Scheduler repeats it on a fixed interval.
*/
package maintenance
