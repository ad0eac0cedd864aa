package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"math"
)

// Vector is a fixed-dimension feature vector. All vectors that enter the
// engine through the feature store are L2-normalized, so cosine similarity
// between two stored vectors reduces to their dot product.
//
// Vector is stored as a JSON array in the database.
type Vector []float32

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded representation of the vector.
//   - error: non-nil if marshaling fails.
func (v Vector) Value() (driver.Value, error) {
	if v == nil {
		return "[]", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (v *Vector) Scan(value interface{}) error {
	if value == nil {
		*v = Vector{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan Vector")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, v)
}

// Dim returns the dimension of the vector.
func (v Vector) Dim() int {
	return len(v)
}

// IsZero reports whether every component is zero. The zero vector is the
// cold-start sentinel for users without positive history.
func (v Vector) IsZero() bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Norm returns the L2 norm of the vector.
func (v Vector) Norm() float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Normalized returns a unit-length copy of the vector. The zero vector
// normalizes to itself so the cold-start sentinel survives re-normalization.
func (v Vector) Normalized() Vector {
	norm := v.Norm()
	out := make(Vector, len(v))
	if norm == 0 {
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// Dot returns the dot product of two vectors of equal dimension.
// For unit vectors this is their cosine similarity.
func (v Vector) Dot(other Vector) float64 {
	var sum float64
	n := len(v)
	if len(other) < n {
		n = len(other)
	}
	for i := 0; i < n; i++ {
		sum += float64(v[i]) * float64(other[i])
	}
	return sum
}

// Cosine returns the cosine similarity between two vectors, handling
// non-unit input. Returns 0 when either vector has zero magnitude.
func (v Vector) Cosine(other Vector) float64 {
	na := v.Norm()
	nb := other.Norm()
	if na == 0 || nb == 0 {
		return 0
	}
	return v.Dot(other) / (na * nb)
}

// Scale returns the vector multiplied by a scalar.
func (v Vector) Scale(s float64) Vector {
	out := make(Vector, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) * s)
	}
	return out
}

// Add returns the component-wise sum of two vectors of equal dimension.
func (v Vector) Add(other Vector) Vector {
	out := make(Vector, len(v))
	for i := range v {
		out[i] = v[i]
		if i < len(other) {
			out[i] += other[i]
		}
	}
	return out
}

// Clone returns a copy of the vector.
func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// ZeroVector returns the cold-start sentinel of the given dimension.
func ZeroVector(dim int) Vector {
	return make(Vector, dim)
}
