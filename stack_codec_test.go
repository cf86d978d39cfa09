package navstack

import (
	"errors"
	"strings"
	"testing"

	"github.com/goliatone/go-navstack/pkg/hydrate"
)

func TestDecodeStackWithHooks(t *testing.T) {
	// Legacy payloads use lowercase keys; the pre-hook renames them before
	// decoding.
	payload := []byte(`[{"name":"home","count":1},{"name":"detail","count":4}]`)
	decoder := hydrate.NewDecoder[screen](
		hydrate.WithPreHook[screen](func(_ hydrate.Context, entry map[string]any) (map[string]any, error) {
			if name, ok := entry["name"]; ok {
				entry["Name"] = name
				delete(entry, "name")
			}
			if count, ok := entry["count"]; ok {
				entry["Count"] = count
				delete(entry, "count")
			}
			return entry, nil
		}),
	)

	stack, err := DecodeStackWith(NewSequentialGenerator(), payload, decoder)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stack.Len() != 2 {
		t.Fatalf("expected two elements, got %d", stack.Len())
	}
	elements := stack.Elements()
	if elements[0].Name != "home" || elements[0].Count != 1 {
		t.Fatalf("unexpected root element: %+v", elements[0])
	}
	if elements[1].Name != "detail" || elements[1].Count != 4 {
		t.Fatalf("unexpected tail element: %+v", elements[1])
	}
	ids := stack.IDs()
	if ids[0].Generation != 0 || ids[1].Generation != 1 {
		t.Fatalf("expected fresh sequential identifiers, got %v", ids)
	}
}

func TestDecodeStackWithPostHookValidation(t *testing.T) {
	wantErr := errors.New("screen name required")
	payload := []byte(`[{"Name":""}]`)
	decoder := hydrate.NewDecoder[screen](
		hydrate.WithPostHook[screen](func(_ hydrate.Context, element *screen) error {
			if element.Name == "" {
				return wantErr
			}
			return nil
		}),
	)

	if _, err := DecodeStackWith(NewSequentialGenerator(), payload, decoder); !errors.Is(err, wantErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeStackWithNilDecoder(t *testing.T) {
	payload := []byte(`[{"Name":"home","Count":1}]`)
	stack, err := DecodeStackWith[screen](NewSequentialGenerator(), payload, nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stack.Len() != 1 {
		t.Fatalf("expected one element, got %d", stack.Len())
	}
}

func TestDecodeStackWithMalformedPayload(t *testing.T) {
	_, err := DecodeStackWith(NewSequentialGenerator(), []byte(`{"not":"a list"}`), hydrate.NewDecoder[screen]())
	if err == nil || !strings.Contains(err.Error(), "decode stack payload") {
		t.Fatalf("expected payload error, got %v", err)
	}
}
