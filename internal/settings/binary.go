package settings

import (
	"encoding/base64"
	"fmt"

	"cexplorer/internal/aspect"
)

// Binary values are stored in maps without a native byte type as
// {"type": "Base64", "value": <standard base64>}.
const (
	binaryTypeKey   = "type"
	binaryValueKey  = "value"
	binaryTypeValue = "Base64"
)

// TagBinary returns a copy of s with every []byte replaced by its tagged form.
func TagBinary(s aspect.Store) aspect.Store {
	out := aspect.CloneStore(s)
	tagInPlace(out)
	return out
}

func tagValue(v any) any {
	switch x := v.(type) {
	case []byte:
		return aspect.Store{
			binaryTypeKey:  binaryTypeValue,
			binaryValueKey: base64.StdEncoding.EncodeToString(x),
		}
	case map[string]any:
		out := make(aspect.Store, len(x))
		for k, val := range x {
			out[k] = tagValue(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = tagValue(val)
		}
		return out
	default:
		return v
	}
}

// UntagBinary returns a copy of s with tagged binary values decoded back to
// []byte. Native []byte values are kept as they are.
func UntagBinary(s aspect.Store) (aspect.Store, error) {
	v, err := untagValue(s, "")
	if err != nil {
		return nil, err
	}
	out, _ := v.(aspect.Store)
	return out, nil
}

func untagValue(v any, path string) (any, error) {
	switch x := v.(type) {
	case map[string]any:
		if raw, ok := taggedBinary(x); ok {
			b, err := base64.StdEncoding.DecodeString(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: invalid base64: %w", path, err)
			}
			return b, nil
		}
		out := make(aspect.Store, len(x))
		for k, val := range x {
			u, err := untagValue(val, join(path, k))
			if err != nil {
				return nil, err
			}
			out[k] = u
		}
		return out, nil
	case map[any]any:
		st, err := aspect.AsStore(x)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return untagValue(st, path)
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			u, err := untagValue(val, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = u
		}
		return out, nil
	case []byte:
		return append([]byte(nil), x...), nil
	default:
		return v, nil
	}
}

func taggedBinary(m map[string]any) (string, bool) {
	if len(m) != 2 || m[binaryTypeKey] != binaryTypeValue {
		return "", false
	}
	raw, ok := m[binaryValueKey].(string)
	return raw, ok
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
