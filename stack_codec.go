package navstack

import (
	"encoding/json"
	"fmt"

	"github.com/goliatone/go-navstack/pkg/hydrate"
)

// DecodeStackWith reconstructs a stack from a payload of JSON objects,
// running every element through decoder so persisted payloads can be
// normalised or validated on the way in. Elements are appended through gen in
// original order; identity is not preserved from the serialized form.
func DecodeStackWith[T any](gen IDGenerator, payload []byte, decoder *hydrate.Decoder[T]) (Stack[T], error) {
	if decoder == nil {
		return DecodeStack[T](gen, payload)
	}

	var raw []map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Stack[T]{}, fmt.Errorf("navstack: decode stack payload: %w", err)
	}

	var s Stack[T]
	for index, entry := range raw {
		element, err := decoder.Decode(hydrate.Context{Index: index}, entry)
		if err != nil {
			return Stack[T]{}, err
		}
		s.Append(gen, element)
	}
	return s, nil
}
