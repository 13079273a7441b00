package memory

import (
	"bytes"

	"github.com/BrandonDHaskell/reviewflow/internal/reviewflow/types"
)

// clone detaches a record from the store's copy so callers cannot mutate it.
func clone(r types.Record) types.Record {
	if r.Payload != nil {
		r.Payload = bytes.Clone(r.Payload)
	}
	if r.Sampled != nil {
		v := *r.Sampled
		r.Sampled = &v
	}
	return r
}
