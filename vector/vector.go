// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package vector reconciles embedding lengths with the vector store's
// configured dimension and provides the similarity helpers shared by the
// storage backends.
package vector

import (
	"errors"
	"fmt"
	"math"
)

// DefaultDim is the store dimension used when none is configured.
const DefaultDim = 1024

// ErrDimensionMismatch is returned by the Strict policy.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Policy maps a vector of any length to exactly dim components.
type Policy func(v []float32, dim int) ([]float32, error)

// TruncatePad keeps the first dim components, right-padding with zeros
// when the input is shorter. Vectors are not renormalized.
func TruncatePad(v []float32, dim int) ([]float32, error) {
	return Adapt(v, dim), nil
}

// TruncatePadNormalize applies TruncatePad and rescales the result to unit length.
func TruncatePadNormalize(v []float32, dim int) ([]float32, error) {
	return Normalize(Adapt(v, dim)), nil
}

// Strict refuses to adapt and reports any length difference.
func Strict(v []float32, dim int) ([]float32, error) {
	if len(v) != dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(v), dim)
	}
	return v, nil
}

// PolicyByName resolves a configured policy name.
func PolicyByName(name string) (Policy, error) {
	switch name {
	case "", "truncate-pad":
		return TruncatePad, nil
	case "truncate-pad-normalize":
		return TruncatePadNormalize, nil
	case "strict":
		return Strict, nil
	}
	return nil, fmt.Errorf("unknown dimension policy %q (want truncate-pad, truncate-pad-normalize or strict)", name)
}

// Adapt returns v unchanged when len(v) == dim, its first dim components
// when longer and a zero-padded copy when shorter.
func Adapt(v []float32, dim int) []float32 {
	switch {
	case len(v) == dim:
		return v
	case len(v) > dim:
		return v[:dim:dim]
	}
	out := make([]float32, dim)
	copy(out, v)
	return out
}

// Adapter applies a Policy for a fixed target dimension.
type Adapter struct {
	Dim    int
	Policy Policy
}

// NewAdapter creates an adapter. A non-positive dim selects DefaultDim and
// a nil policy selects TruncatePad.
func NewAdapter(dim int, policy Policy) *Adapter {
	if dim <= 0 {
		dim = DefaultDim
	}
	if policy == nil {
		policy = TruncatePad
	}
	return &Adapter{Dim: dim, Policy: policy}
}

// Adapt maps v to the adapter's dimension.
func (a *Adapter) Adapt(v []float32) ([]float32, error) {
	return a.Policy(v, a.Dim)
}

// AdaptAll maps every vector, failing on the first policy error.
func (a *Adapter) AdaptAll(vs [][]float32) ([][]float32, error) {
	out := make([][]float32, len(vs))
	for i, v := range vs {
		adapted, err := a.Adapt(v)
		if err != nil {
			return nil, fmt.Errorf("vector %d: %w", i, err)
		}
		out[i] = adapted
	}
	return out, nil
}

// Normalize normalizes a vector to unit length.
// Returns a new vector. If the input is a zero vector, returns a zero vector.
func Normalize(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}

	var magnitude float32
	for _, val := range v {
		magnitude += val * val
	}
	magnitude = float32(math.Sqrt(float64(magnitude)))

	result := make([]float32, len(v))
	if magnitude == 0 {
		return result
	}
	for i, val := range v {
		result[i] = val / magnitude
	}
	return result
}

// Cosine returns the cosine similarity of two equal-length vectors.
// A zero vector has similarity 0 with everything.
func Cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
