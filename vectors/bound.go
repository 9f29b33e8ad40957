package vectors

// BoundIndex maps an implementation routine's offset to the lowest glue
// stub offset that calls through to it, i.e. the inverse of GlueImplMap
// collapsed to one entry per implementation (spec.md §4.8's "vector-bound
// label has a known glue address").
type BoundIndex map[int]int

// BuildBoundIndex inverts impl, keeping the smallest stub offset per
// implementation target so that module-name selection has a single,
// deterministic glue-address sort key.
func BuildBoundIndex(impl GlueImplMap) BoundIndex {
	out := make(BoundIndex)
	for stub, target := range impl {
		t := int(target)
		if cur, ok := out[t]; !ok || stub < cur {
			out[t] = stub
		}
	}
	return out
}
