// Package tags holds the casefolded tag Set type and the closure
// computation: the tags visible at an item are its own tags plus the tags
// of all of its ancestors.
//
// Everything here is pure; persisting a closure is done by the database
// package (SaveComputedTags).
package tags
