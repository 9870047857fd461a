package factored

// #region enumerator

// PartialEnumerator iterates every joint assignment of the variables
// in a tag, little-endian on tag position: the first variable in the
// tag varies fastest. A fresh enumerator yields exactly
// FactorSpacePartial(tag, space) assignments and then becomes invalid;
// the i-th assignment is the mixed-radix decomposition of i.
//
// The Partial returned by Partial is a view over internal storage and
// is overwritten by Advance and Reset.
type PartialEnumerator struct {
	space Factors
	cur   Partial
	valid bool
}

// NewPartialEnumerator returns an enumerator over the assignments of
// tag within space, positioned on the all-zeros assignment.
func NewPartialEnumerator(space Factors, tag Tag) *PartialEnumerator {
	CheckTag(space, tag)
	return &PartialEnumerator{
		space: space,
		cur: Partial{
			Tag:    append(Tag(nil), tag...),
			Values: make(Factors, len(tag)),
		},
		valid: true,
	}
}

// Valid reports whether the enumerator points at an assignment.
func (e *PartialEnumerator) Valid() bool { return e.valid }

// Partial returns the current assignment. Calling it on an invalid
// enumerator is a precondition violation.
func (e *PartialEnumerator) Partial() Partial {
	if !e.valid {
		panic("factored: dereferenced invalid enumerator")
	}
	return e.cur
}

// Advance moves to the next assignment, invalidating the enumerator
// once all combinations have been produced.
func (e *PartialEnumerator) Advance() {
	for i, v := range e.cur.Tag {
		e.cur.Values[i]++
		if e.cur.Values[i] < e.space[v] {
			return
		}
		e.cur.Values[i] = 0
	}
	e.valid = false
}

// Reset rewinds the enumerator to the all-zeros assignment.
func (e *PartialEnumerator) Reset() {
	for i := range e.cur.Values {
		e.cur.Values[i] = 0
	}
	e.valid = true
}

// #endregion enumerator
