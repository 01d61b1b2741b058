// Package primitives implements the eight kernel verbs every other verb
// in the system ultimately reduces to (spec.md §4.2).
package primitives

import (
	"fmt"

	"spock/internal/vectorspace"
)

// Add is the element-wise sum; commutative, identity is the zero vector.
func Add(a, b vectorspace.Vector) (vectorspace.Vector, error) {
	return vectorspace.Add(a, b)
}

// Bind is the element-wise (Hadamard) product; commutative, identity is
// the all-ones vector. On bipolar ±1 vectors Bind(a,a) is all-ones.
func Bind(a, b vectorspace.Vector) (vectorspace.Vector, error) {
	return vectorspace.Hadamard(a, b)
}

// Negate flips the sign of every element. Negate(Negate(v)) == v.
func Negate(v vectorspace.Vector) vectorspace.Vector {
	return vectorspace.Scale(v, -1)
}

// Distance maps cosine similarity from [-1,1] to a [0,1] similarity score
// via (c+1)/2. Despite the name this is a similarity, not a metric
// (spec.md §4.2, §9 Open Question).
func Distance(a, b vectorspace.Vector) (float64, error) {
	c, err := vectorspace.CosineSimilarity(a, b)
	if err != nil {
		return 0, err
	}
	return (c + 1) / 2, nil
}

// Move denotes a state transition but computes the same result as Add.
func Move(a, b vectorspace.Vector) (vectorspace.Vector, error) {
	return vectorspace.Add(a, b)
}

// Modulate is polymorphic: a scalar second operand scales a; a vector
// second operand binds (Hadamard) with a.
func Modulate(a vectorspace.Vector, operand interface{}) (vectorspace.Vector, error) {
	switch o := operand.(type) {
	case float64:
		return vectorspace.Scale(a, o), nil
	case vectorspace.Vector:
		return vectorspace.Hadamard(a, o)
	default:
		return vectorspace.Vector{}, fmt.Errorf("primitives: Modulate operand must be scalar or vector, got %T", operand)
	}
}

// Identity returns a fresh copy of v.
func Identity(v vectorspace.Vector) vectorspace.Vector {
	return vectorspace.Clone(v)
}

// Normalise divides v by its norm, preserving the zero vector.
func Normalise(v vectorspace.Vector) vectorspace.Vector {
	return vectorspace.Normalise(v)
}
