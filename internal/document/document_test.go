package document

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"cexplorer/internal/aspect"
	"cexplorer/internal/settings"
)

func sampleDocument() *settings.Document {
	doc := settings.NewDocument(nil)
	doc.WindowState.SetValue(aspect.Store{"geometry": []byte("\x01\x02layout")})
	src := doc.NewSource()
	src.Text.SetValue("int square(int x) { return x * x; }")
	doc.Sources.AddItem(src)
	comp := src.NewCompiler()
	comp.ID.SetValue("g132")
	comp.Options.SetValue("-O2")
	comp.Libraries.SetValue(map[string]string{"fmt": "1000"})
	comp.ExecuteCode.SetValue(true)
	src.Compilers.AddItem(comp)
	doc.Apply()
	return doc
}

func TestFormatsRoundTripDocument(t *testing.T) {
	for _, f := range []Format{FormatJSON, FormatYAML, FormatMsgPack} {
		t.Run(f.String(), func(t *testing.T) {
			orig := sampleDocument()
			data, err := Encode(f, orig.Map())
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			s, err := Decode(f, data)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			loaded := settings.NewDocument(nil)
			if err := loaded.FromMap(s); err != nil {
				t.Fatalf("from map: %v", err)
			}
			if !reflect.DeepEqual(orig.Map(), loaded.Map()) {
				t.Fatalf("round trip mismatch\n%#v\n%#v", orig.Map(), loaded.Map())
			}
			geo := loaded.WindowState.Value()["geometry"].([]byte)
			if !bytes.Equal(geo, []byte("\x01\x02layout")) {
				t.Fatalf("binary lost: %q", geo)
			}
		})
	}
}

func TestMsgPackStoresNativeBinary(t *testing.T) {
	data, err := Encode(FormatMsgPack, sampleDocument().Map())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if bytes.Contains(data, []byte("Base64")) {
		t.Fatalf("msgpack should not carry the base64 tag")
	}
	js, err := Encode(FormatJSON, sampleDocument().Map())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Contains(js, []byte(`"Base64"`)) {
		t.Fatalf("json should carry the base64 tag")
	}
}

func TestReadFileReportsParseErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "broken.qtce", content: `{"Sources": [`, want: "failed to parse json document"},
		{name: "list.json", content: `[1, 2]`, want: "document root"},
		{name: "broken.yaml", content: "a: [", want: "failed to parse yaml document"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			_, err := ReadFile(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) || !strings.Contains(err.Error(), path) {
				t.Fatalf("unexpected error %v", err)
			}
		})
	}
}

func TestConvertBetweenFormats(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "session.json")
	out := filepath.Join(dir, "session.yaml")
	if err := WriteFile(in, sampleDocument().Map()); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := Convert(in, out); err != nil {
		t.Fatalf("convert: %v", err)
	}
	s, err := ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	doc := settings.NewDocument(nil)
	if err := doc.FromMap(s); err != nil {
		t.Fatalf("from map: %v", err)
	}
	if doc.Sources.Size() != 1 || doc.Sources.Items()[0].Compilers.Items()[0].Options.Value() != "-O2" {
		t.Fatalf("converted document lost state")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("yml"); err != nil || f != FormatYAML {
		t.Fatalf("yml: %v %v", f, err)
	}
	if _, err := ParseFormat("toml"); err == nil {
		t.Fatalf("expected error")
	}
	if FormatFromPath("a/b.unknown") != FormatJSON {
		t.Fatalf("unknown extension should default to json")
	}
}
