package comparer

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func IgnoreFieldsFor[T any](fields ...string) cmp.Option {
	var t T
	return cmpopts.IgnoreFields(t, fields...)
}

// StoredNode compares a node written by a service with the row read back:
// timestamps by instant, properties by JSON form, nil and empty embeddings
// as equal.
func StoredNode() cmp.Option {
	return cmp.Options{SameInstant(), Properties(), Embedding()}
}

func StoredEdge() cmp.Option {
	return cmp.Options{SameInstant(), Properties()}
}

func Embedding() cmp.Option {
	return cmp.Comparer(func(x, y []float32) bool {
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if x[i] != y[i] {
				return false
			}
		}
		return true
	})
}
