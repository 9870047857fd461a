// Package factored provides the primitives for working with factored
// state and action spaces: tags (sorted variable subsets), partial
// assignments, and mixed-radix enumeration over them.
//
// A space is a list of domain sizes, one per variable. All enumeration
// and indexing in this package is little-endian on tag position: the
// first variable in a tag varies fastest.
package factored

import (
	"fmt"
	"sort"
)

// #region types

// Factors is either a factor space (the domain size of each variable)
// or a full assignment (one value per variable), depending on context.
type Factors []int

// Tag identifies a subset of variables by index. A valid tag is
// strictly increasing and every index is within the enclosing space.
type Tag []int

// Partial assigns a value only to the variables named by its tag.
// Variables outside the tag are left unspecified.
type Partial struct {
	Tag    Tag
	Values Factors
}

// #endregion types

// #region validation

// CheckTag panics unless tag is strictly increasing and every index is
// a valid variable of space.
func CheckTag(space Factors, tag Tag) {
	for i, v := range tag {
		if v < 0 || v >= len(space) {
			panic(fmt.Sprintf("factored: tag index %d out of range for space of %d variables", v, len(space)))
		}
		if i > 0 && tag[i-1] >= v {
			panic(fmt.Sprintf("factored: tag not strictly increasing at position %d", i))
		}
	}
}

// TagError reports why a tag is invalid in space, or nil.
// The query paths use CheckTag; ingestion paths prefer an error.
func TagError(space Factors, tag Tag) error {
	for i, v := range tag {
		if v < 0 || v >= len(space) {
			return fmt.Errorf("tag index %d out of range for space of %d variables", v, len(space))
		}
		if i > 0 && tag[i-1] >= v {
			return fmt.Errorf("tag not strictly increasing at position %d", i)
		}
	}
	return nil
}

// #endregion validation

// #region sizes

// FactorSpace returns the number of joint assignments of space, i.e.
// the product of all domain sizes.
func FactorSpace(space Factors) int {
	size := 1
	for _, d := range space {
		size *= d
	}
	return size
}

// FactorSpacePartial returns the number of joint assignments of the
// variables in tag, i.e. the product of their domain sizes.
func FactorSpacePartial(tag Tag, space Factors) int {
	CheckTag(space, tag)
	size := 1
	for _, v := range tag {
		size *= space[v]
	}
	return size
}

// #endregion sizes

// #region merge

// Merge returns the sorted union of two tags, without duplicates.
func Merge(a, b Tag) Tag {
	out := make(Tag, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// #endregion merge

// #region indexing

// ToIndex returns the little-endian mixed-radix index of the values of
// the full assignment s at the variables named by tag. It is the row
// index of a CPT whose parent tag is tag.
func ToIndex(tag Tag, space Factors, s Factors) int {
	if len(s) != len(space) {
		panic(fmt.Sprintf("factored: assignment has %d values, space has %d variables", len(s), len(space)))
	}
	id, stride := 0, 1
	for _, v := range tag {
		id += s[v] * stride
		stride *= space[v]
	}
	return id
}

// ToIndexPartial returns the little-endian mixed-radix index of the
// projection of p onto tag. p must assign a value to every variable of
// tag; if any is missing, the caller violated a precondition and
// ToIndexPartial panics.
func ToIndexPartial(tag Tag, space Factors, p Partial) int {
	id, stride := 0, 1
	j := 0
	for _, v := range tag {
		for j < len(p.Tag) && p.Tag[j] < v {
			j++
		}
		if j == len(p.Tag) || p.Tag[j] != v {
			panic(fmt.Sprintf("factored: partial assignment does not cover variable %d", v))
		}
		id += p.Values[j] * stride
		stride *= space[v]
	}
	return id
}

// Covers reports whether p assigns a value to every variable of tag.
func Covers(p Partial, tag Tag) bool {
	j := 0
	for _, v := range tag {
		for j < len(p.Tag) && p.Tag[j] < v {
			j++
		}
		if j == len(p.Tag) || p.Tag[j] != v {
			return false
		}
	}
	return true
}

// #endregion indexing

// #region helpers

// ToPartial converts a full assignment into a Partial over all
// variables of the space.
func ToPartial(s Factors) Partial {
	tag := make(Tag, len(s))
	for i := range s {
		tag[i] = i
	}
	return Partial{Tag: tag, Values: append(Factors(nil), s...)}
}

// Project returns the Partial restricting the full assignment s to the
// variables of tag.
func Project(tag Tag, s Factors) Partial {
	vals := make(Factors, len(tag))
	for i, v := range tag {
		vals[i] = s[v]
	}
	return Partial{Tag: append(Tag(nil), tag...), Values: vals}
}

// SortTag sorts and deduplicates an arbitrary index list into a valid
// tag.
func SortTag(ids []int) Tag {
	out := append(Tag(nil), ids...)
	sort.Ints(out)
	j := 0
	for i := 0; i < len(out); i++ {
		if i > 0 && out[i] == out[i-1] {
			continue
		}
		out[j] = out[i]
		j++
	}
	return out[:j]
}

// #endregion helpers
