package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestCompileSendsSnapshotAndMapsResult(t *testing.T) {
	var got wireCompileRequest
	var path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{
			"code": 0,
			"stdout": [],
			"stderr": [{"text": "warning: unused"}],
			"asm": [{"text": "mov eax,1", "opcodes": ["b8","01","00","00","00"]}, {"text": "ret"}],
			"execResult": {
				"code": 3, "didExecute": true,
				"stdout": [{"text": "hello"}], "stderr": [],
				"buildResult": {"code": 0, "stdout": [], "stderr": [{"text": "linked"}]}
			}
		}`))
	})
	req := CompileRequest{
		CompilerID:    "g132",
		Language:      "c++",
		Source:        "int main() { return 3; }",
		UserArguments: "-O2",
		Filters:       FilterSet{Execute: true, Intel: true},
		Libraries:     map[string]string{"fmt": "1000", "boost": "185"},
	}
	res, err := c.Compile(context.Background(), req)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if path != "/api/compiler/g132/compile" {
		t.Fatalf("unexpected path %q", path)
	}
	if got.Source != req.Source || got.Options.UserArguments != "-O2" || got.Lang != "c++" {
		t.Fatalf("request fields not sent: %+v", got)
	}
	f := got.Options.Filters
	if !f.Execute || !f.Intel || f.Demangle || f.BinaryObject || !f.CommentOnly || !f.Directives || !f.Labels || f.LibraryCode {
		t.Fatalf("unexpected filters %+v", f)
	}
	if len(got.Options.Libraries) != 2 || got.Options.Libraries[0].ID != "boost" {
		t.Fatalf("libraries should be sent sorted: %+v", got.Options.Libraries)
	}
	if len(res.Assembly) != 2 || len(res.Assembly[0].Opcodes) != 5 || res.Assembly[1].Opcodes != nil {
		t.Fatalf("assembly not mapped: %+v", res.Assembly)
	}
	if res.Exec == nil || !res.Exec.DidExecute || res.Exec.ExitCode != 3 || res.Exec.Build == nil {
		t.Fatalf("exec result not mapped: %+v", res.Exec)
	}
	if res.StdErr[0] != "warning: unused" || res.Exec.Build.StdErr[0] != "linked" {
		t.Fatalf("text streams not mapped")
	}
}

func TestCompileWithoutExecResult(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code": 1, "stderr": [{"text": "error: expected ';'"}]}`))
	})
	res, err := c.Compile(context.Background(), CompileRequest{})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if res.Exec != nil || res.ExitCode != 1 || len(res.Assembly) != 0 {
		t.Fatalf("absent sections must stay empty: %+v", res)
	}
}

func TestDefaultCompilerFallback(t *testing.T) {
	var path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = w.Write([]byte(`{"code": 0}`))
	})
	if _, err := c.Compile(context.Background(), CompileRequest{Source: "x"}); err != nil {
		t.Fatalf("compile: %v", err)
	}
	if path != "/api/compiler/"+DefaultCompilerID+"/compile" {
		t.Fatalf("expected default compiler, got %q", path)
	}
}

func TestStatusErrorCarriesBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Unknown compiler", http.StatusNotFound)
	})
	_, err := c.Compile(context.Background(), CompileRequest{CompilerID: "nope"})
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if apiErr.Status != http.StatusNotFound || !strings.Contains(apiErr.Error(), "Unknown compiler") {
		t.Fatalf("unexpected error %v", apiErr)
	}
}

func TestCatalogEndpoints(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/languages":
			_, _ = w.Write([]byte(`[{"id":"c++","name":"C++","extensions":[".cpp",".cxx"],"defaultCompiler":"g132"}]`))
		case "/api/compilers/c++":
			_, _ = w.Write([]byte(`[{"id":"g132","name":"x86-64 gcc 13.2","lang":"c++"}]`))
		case "/api/libraries/c++":
			_, _ = w.Write([]byte(`[{"id":"fmt","name":"{fmt}","versions":[{"id":"1000","version":"10.0.0"}]}]`))
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()
	langs, err := c.Languages(ctx)
	if err != nil || len(langs) != 1 || langs[0].Extensions[0] != ".cpp" {
		t.Fatalf("languages: %v %+v", err, langs)
	}
	comps, err := c.Compilers(ctx, "c++")
	if err != nil || len(comps) != 1 || comps[0].Name != "x86-64 gcc 13.2" {
		t.Fatalf("compilers: %v %+v", err, comps)
	}
	libs, err := c.Libraries(ctx, "c++")
	if err != nil || len(libs) != 1 || libs[0].Versions[0].Version != "10.0.0" {
		t.Fatalf("libraries: %v %+v", err, libs)
	}
}

func TestProxyTransport(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ProxyConfig
		wantErr bool
		socks   bool
	}{
		{name: "http", cfg: ProxyConfig{Host: "proxy.local", Port: 3128, User: "u", Password: "p"}},
		{name: "socks", cfg: ProxyConfig{Scheme: "socks5", Host: "127.0.0.1", Port: 1080}, socks: true},
		{name: "bad scheme", cfg: ProxyConfig{Scheme: "ftp", Host: "x"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := newTransport(&tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("transport: %v", err)
			}
			if tt.socks && (tr.DialContext == nil || tr.Proxy != nil) {
				t.Fatalf("socks proxy should replace the dialer")
			}
			if !tt.socks {
				u, err := tr.Proxy(httptest.NewRequest(http.MethodGet, "https://godbolt.org", nil))
				if err != nil || u == nil || u.Host != "proxy.local:3128" || u.User.Username() != "u" {
					t.Fatalf("unexpected proxy url %v %v", u, err)
				}
			}
		})
	}
}

func TestExitCodeSaturates(t *testing.T) {
	tests := []struct {
		in   int64
		want int
	}{
		{139, 139},
		{-1, -1},
		{math.MaxInt32, math.MaxInt32},
		{1 << 40, math.MaxInt32},
		{-(1 << 40), math.MinInt32},
	}
	for _, tt := range tests {
		if got := exitCode(tt.in); got != tt.want {
			t.Fatalf("exitCode(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	if _, err := New(Options{BaseURL: "ftp://example.com"}); err == nil {
		t.Fatalf("expected scheme error")
	}
}
