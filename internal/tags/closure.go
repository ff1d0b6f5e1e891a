package tags

// Tagged is anything that carries its own raw tags.
type Tagged interface {
	OwnTags() []string
}

// Compute returns the closure of item: its own tags unioned with the tags
// of every ancestor, all casefolded. ancestors is ordered root to parent;
// the order does not change the result. Acyclic ancestry is the caller's
// responsibility.
func Compute[T Tagged](item T, ancestors []T) Set {
	closure := make(Set)
	for _, ancestor := range ancestors {
		closure.Add(ancestor.OwnTags()...)
	}
	closure.Add(item.OwnTags()...)
	return closure
}

// Inherit returns the closure of item given the already computed closure of
// its parent. Used when walking down a subtree, so ancestors are folded only
// once.
func Inherit[T Tagged](parentClosure Set, item T) Set {
	closure := make(Set, len(parentClosure))
	for tag := range parentClosure {
		closure[tag] = struct{}{}
	}
	closure.Add(item.OwnTags()...)
	return closure
}
