// Package search answers tag queries and tag autocompletion for a caller.
//
// Evaluator turns a parsed query into a permission-aware filter over items'
// computed tags. Autocompleter completes a tag prefix from the caller's
// known tags counters. Service is the entry point used by the HTTP layer:
// it parses raw text, applies minimal length guards, clamps limits and
// measures how long the engine took.
//
// Anonymous callers see items owned by public users. A registered caller
// sees items they own or were granted. Deleted items are never returned.
package search
