package comparer

import (
	"encoding/json"
	"reflect"

	"github.com/google/go-cmp/cmp"

	"coachgraph/src/domain/entities"
)

// JSONRawMessage compara json.RawMessage ignorando a ordem das chaves
func JSONRawMessage() cmp.Option {
	return cmp.Comparer(func(x, y json.RawMessage) bool {
		if len(x) == 0 && len(y) == 0 {
			return true
		}
		if len(x) == 0 || len(y) == 0 {
			return false
		}
		return semanticEqual(x, y)
	})
}

// Properties compares property maps by their JSON form, so an int written by
// a test equals the float64 decoded from jsonb.
func Properties() cmp.Option {
	return cmp.Comparer(func(x, y entities.Properties) bool {
		if len(x) == 0 && len(y) == 0 {
			return true
		}
		xRaw, err := json.Marshal(x)
		if err != nil {
			return false
		}
		yRaw, err := json.Marshal(y)
		if err != nil {
			return false
		}
		return semanticEqual(xRaw, yRaw)
	})
}

func semanticEqual(x, y []byte) bool {
	var xObj, yObj any
	if err := json.Unmarshal(x, &xObj); err != nil {
		return false
	}
	if err := json.Unmarshal(y, &yObj); err != nil {
		return false
	}
	return reflect.DeepEqual(xObj, yObj)
}
