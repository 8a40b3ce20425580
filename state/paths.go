package state

// PathsByKind is the {initialized, uninitialized, consumed} view of a
// partial Value, spec.md §4.5.
type PathsByKind struct {
	Initialized   []Path
	Uninitialized []Path
	Consumed      []Path
}

// InitializedPaths lists every leaf path whose atom is `initialized`.
// If v is itself full(initialized), the single result is the empty path
// (spec.md §4.5: "If the whole Value is full(initialized), the single
// path is the empty vector").
func (v Value) InitializedPaths() []Path {
	v = v.canonicalize()
	if !v.isPartial {
		if v.atom.IsInitialized() {
			return []Path{{}}
		}
		return nil
	}
	var out []Path
	for i, c := range v.children {
		for _, p := range c.InitializedPaths() {
			out = append(out, append(Path{i}, p...))
		}
	}
	return out
}

// Paths returns the {initialized, uninitialized, consumed} leaf-path
// view. It is populated only when v is partial; a full Value returns a
// zero PathsByKind with all three fields nil, which callers must treat
// as "not applicable" rather than "empty" (spec.md §4.5: "returns nil
// otherwise").
func (v Value) Paths() (out PathsByKind) {
	v = v.canonicalize()
	if !v.isPartial {
		return PathsByKind{}
	}
	for i, c := range v.children {
		sub := leafPaths(c)
		for _, p := range sub.Initialized {
			out.Initialized = append(out.Initialized, append(Path{i}, p...))
		}
		for _, p := range sub.Uninitialized {
			out.Uninitialized = append(out.Uninitialized, append(Path{i}, p...))
		}
		for _, p := range sub.Consumed {
			out.Consumed = append(out.Consumed, append(Path{i}, p...))
		}
	}
	return out
}

// leafPaths classifies every leaf of v (full or partial) into the three
// buckets, relative to v itself.
func leafPaths(v Value) (out PathsByKind) {
	v = v.canonicalize()
	if !v.isPartial {
		switch v.atom.Kind() {
		case Initialized:
			out.Initialized = []Path{{}}
		case Uninitialized:
			out.Uninitialized = []Path{{}}
		case Consumed:
			out.Consumed = []Path{{}}
		}
		return out
	}
	for i, c := range v.children {
		sub := leafPaths(c)
		for _, p := range sub.Initialized {
			out.Initialized = append(out.Initialized, append(Path{i}, p...))
		}
		for _, p := range sub.Uninitialized {
			out.Uninitialized = append(out.Uninitialized, append(Path{i}, p...))
		}
		for _, p := range sub.Consumed {
			out.Consumed = append(out.Consumed, append(Path{i}, p...))
		}
	}
	return out
}

// Difference returns the paths initialized in a but not in b (spec.md
// §4.5), compared slot by slot: where one side is full and the other
// partial, the full side is expanded to the partial side's shape.
func Difference(a, b Value) []Path {
	a, b = a.canonicalize(), b.canonicalize()
	if !a.isPartial && !b.isPartial {
		if a.atom.IsInitialized() && !b.atom.IsInitialized() {
			return []Path{{}}
		}
		return nil
	}
	if !a.isPartial {
		a = liftFull(a.atom, len(b.children))
	} else if !b.isPartial {
		b = liftFull(b.atom, len(a.children))
	}
	var out []Path
	for i := range a.children {
		for _, p := range Difference(a.children[i], b.children[i]) {
			out = append(out, append(Path{i}, p...))
		}
	}
	return out
}

func (v Value) String() string {
	v = v.canonicalize()
	if !v.isPartial {
		return v.atom.String()
	}
	s := "("
	for i, c := range v.children {
		if i > 0 {
			s += ", "
		}
		s += c.String()
	}
	return s + ")"
}
