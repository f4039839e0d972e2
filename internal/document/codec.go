// Package document reads and writes settings documents. A document is the
// map a settings.Document serializes to; JSON is the default on-disk form,
// YAML and MessagePack are also understood.
package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"cexplorer/internal/aspect"
	"cexplorer/internal/settings"
)

// Format selects a codec.
type Format uint8

const (
	FormatJSON Format = iota
	FormatYAML
	FormatMsgPack
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	case FormatMsgPack:
		return "msgpack"
	default:
		return fmt.Sprintf("Format(%d)", uint8(f))
	}
}

// ParseFormat accepts a format name.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "json", "qtce", "":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "msgpack", "mp", "mpk":
		return FormatMsgPack, nil
	default:
		return 0, fmt.Errorf("unknown document format %q", name)
	}
}

// FormatFromPath picks a format from the file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	f, err := ParseFormat(filepath.Ext(path))
	if err != nil {
		return FormatJSON
	}
	return f
}

// Encode serializes s. JSON and YAML carry binary values in the tagged
// Base64 form; MessagePack stores them natively.
func Encode(f Format, s aspect.Store) ([]byte, error) {
	switch f {
	case FormatJSON:
		return json.MarshalIndent(settings.TagBinary(s), "", "    ")
	case FormatYAML:
		return yaml.Marshal(settings.TagBinary(s))
	case FormatMsgPack:
		plain, err := settings.UntagBinary(s)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		enc := msgpack.NewEncoder(&buf)
		enc.SetSortMapKeys(true)
		if err := enc.Encode(plain); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown document format %v", f)
	}
}

// Decode parses data into a map. The top level must be a map.
func Decode(f Format, data []byte) (aspect.Store, error) {
	var raw any
	switch f {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		raw = normalizeNumbers(raw)
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	case FormatMsgPack:
		if err := msgpack.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown document format %v", f)
	}
	if raw == nil {
		return aspect.Store{}, nil
	}
	s, err := aspect.AsStore(raw)
	if err != nil {
		return nil, fmt.Errorf("document root: %w", err)
	}
	return s, nil
}

// normalizeNumbers turns json.Number into int64 where exact, float64 otherwise.
func normalizeNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		f, _ := x.Float64()
		return f
	case map[string]any:
		for k, val := range x {
			x[k] = normalizeNumbers(val)
		}
		return x
	case []any:
		for i, val := range x {
			x[i] = normalizeNumbers(val)
		}
		return x
	default:
		return v
	}
}
