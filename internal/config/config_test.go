package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	p, unknown, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(unknown) != 0 {
		t.Fatalf("unexpected unknown keys %v", unknown)
	}
	if p.ServiceURL.Value() != "https://godbolt.org" || p.Debounce() != 500*time.Millisecond {
		t.Fatalf("unexpected defaults: %q %v", p.ServiceURL.Value(), p.Debounce())
	}
	if p.Proxy() != nil {
		t.Fatalf("proxy should be off by default")
	}
}

func TestLoadClampsAndReportsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
[service]
url = "http://localhost:10240"
debounce_ms = 250
timeout_ms = 5

[proxy]
enabled = true
scheme = "socks5"
host = "127.0.0.1"
port = 99999

[extra]
colour = "blue"
`)
	p, unknown, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.Debounce() != 250*time.Millisecond {
		t.Fatalf("debounce not loaded: %v", p.Debounce())
	}
	if p.Timeout() != time.Second {
		t.Fatalf("timeout should clamp to 1s, got %v", p.Timeout())
	}
	proxy := p.Proxy()
	if proxy == nil || proxy.Port != 65535 || proxy.Scheme != "socks5" {
		t.Fatalf("unexpected proxy %+v", proxy)
	}
	if len(unknown) != 1 || unknown[0] != "extra.colour" {
		t.Fatalf("unexpected unknown keys %v", unknown)
	}
	if p.Modified() {
		t.Fatalf("freshly loaded plugin should not be modified")
	}
}

func TestZeroDurationsClampToMinimum(t *testing.T) {
	path := writeConfig(t, `
[service]
debounce_ms = 0

[cache]
ttl_hours = 0
`)
	p, _, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.Debounce() != time.Millisecond {
		t.Fatalf("debounce should clamp to 1ms, got %v", p.Debounce())
	}
	if p.CacheTTL() != time.Hour {
		t.Fatalf("cache ttl should clamp to 1h, got %v", p.CacheTTL())
	}
}

func TestLoadRejectsMalformed(t *testing.T) {
	for name, content := range map[string]string{
		"syntax": "[service\nurl = 1",
		"shape":  "[service]\nurl = 5\n",
	} {
		t.Run(name, func(t *testing.T) {
			if _, _, err := Load(writeConfig(t, content)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestProxyDisabledIgnoresHost(t *testing.T) {
	p := New()
	p.ProxyHost.Edit("proxy.local")
	if p.Proxy() != nil {
		t.Fatalf("disabled proxy must not be used")
	}
	p.UseProxy.Edit(true)
	if got := p.Proxy(); got == nil || got.Host != "proxy.local" || got.Port != 8080 {
		t.Fatalf("unexpected proxy %+v", got)
	}
}

func TestCloseSavesOnlyWhenModified(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	p, _, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("unmodified plugin should not be written")
	}
	p.DebounceMS.Edit(750)
	p.DefaultDocument.Edit(`{"Sources": []}`)
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	again, _, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Debounce() != 750*time.Millisecond || again.DefaultDocument.Value() != `{"Sources": []}` {
		t.Fatalf("saved values not reloaded")
	}
}
