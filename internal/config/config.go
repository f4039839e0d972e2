// Package config holds process-wide plugin settings. A Plugin is loaded once
// at startup, injected into the components that need it and saved back on
// shutdown when something changed.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"cexplorer/internal/api"
	"cexplorer/internal/aspect"
)

// Plugin is an auto-applying aspect container. Keys are dotted TOML paths.
type Plugin struct {
	aspect.Container

	ServiceURL       *aspect.String
	TimeoutMS        *aspect.Int
	DebounceMS       *aspect.Int
	CancelSuperseded *aspect.Bool

	UseProxy      *aspect.Bool
	ProxyScheme   *aspect.String
	ProxyHost     *aspect.String
	ProxyPort     *aspect.Int
	ProxyUser     *aspect.String
	ProxyPassword *aspect.String

	CacheDir      *aspect.String
	CacheTTLHours *aspect.Int

	LogLevel  *aspect.String
	LogFormat *aspect.String

	DefaultDocument *aspect.String

	path     string
	modified bool
}

// New returns a plugin with default values.
func New() *Plugin {
	p := &Plugin{}
	c := &p.Container
	c.SetAutoApply(true)

	p.ServiceURL = aspect.NewString(c, "service.url")
	p.ServiceURL.SetDefaultValue(api.DefaultBaseURL)
	p.TimeoutMS = aspect.NewInt(c, "service.timeout_ms", 30_000)
	p.TimeoutMS.SetRange(1_000, 600_000)
	p.DebounceMS = aspect.NewInt(c, "service.debounce_ms", 500)
	p.DebounceMS.SetRange(1, 10_000)
	p.CancelSuperseded = aspect.NewBool(c, "service.cancel_superseded", false)

	p.UseProxy = aspect.NewBool(c, "proxy.enabled", false)
	p.ProxyScheme = aspect.NewString(c, "proxy.scheme")
	p.ProxyScheme.SetDefaultValue("http")
	p.ProxyHost = aspect.NewString(c, "proxy.host")
	p.ProxyPort = aspect.NewInt(c, "proxy.port", 8080)
	p.ProxyPort.SetRange(1, 65535)
	p.ProxyUser = aspect.NewString(c, "proxy.user")
	p.ProxyPassword = aspect.NewString(c, "proxy.password")
	for _, a := range []interface{ SetEnabler(*aspect.Bool) }{p.ProxyScheme, p.ProxyHost, p.ProxyPort, p.ProxyUser, p.ProxyPassword} {
		a.SetEnabler(p.UseProxy)
	}

	p.CacheDir = aspect.NewString(c, "cache.dir")
	p.CacheTTLHours = aspect.NewInt(c, "cache.ttl_hours", 24)
	p.CacheTTLHours.SetRange(1, 24*30)

	p.LogLevel = aspect.NewString(c, "log.level")
	p.LogLevel.SetDefaultValue("info")
	p.LogFormat = aspect.NewString(c, "log.format")
	p.LogFormat.SetDefaultValue("console")

	p.DefaultDocument = aspect.NewString(c, "session.default_document")

	p.OnChanged(func() { p.modified = true })
	return p
}

// DefaultPath returns $XDG_CONFIG_HOME/cexplorer/config.toml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cexplorer", "config.toml"), nil
}

// Load reads path into a new plugin. A missing file yields defaults. Keys the
// plugin does not know are returned so the caller can warn about them.
func Load(path string) (*Plugin, []string, error) {
	p := New()
	p.path = path
	var raw map[string]any
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return p, nil, nil
		}
		return nil, nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	flat := aspect.Store{}
	flatten("", raw, flat)
	if err := p.FromMap(flat); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	var unknown []string
	for k := range flat {
		if p.Aspect(k) == nil {
			unknown = append(unknown, k)
		}
	}
	slices.Sort(unknown)
	p.modified = false
	return p, unknown, nil
}

// Path is where Save writes; empty for a plugin built with New.
func (p *Plugin) Path() string { return p.path }

func (p *Plugin) SetPath(path string) { p.path = path }

// Modified reports whether a value changed since load or the last save.
func (p *Plugin) Modified() bool { return p.modified }

// Save writes the plugin to its path.
func (p *Plugin) Save() error {
	if p.path == "" {
		return errors.New("config: no path to save to")
	}
	flat := aspect.Store{}
	p.ToMap(flat)
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p.path), ".config-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())
	if err := toml.NewEncoder(f).Encode(nest(flat)); err != nil {
		_ = f.Close()
		return fmt.Errorf("%s: %w", p.path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(f.Name(), p.path); err != nil {
		return err
	}
	p.modified = false
	return nil
}

// Close saves the plugin when it was modified and has a path.
func (p *Plugin) Close() error {
	if !p.modified || p.path == "" {
		return nil
	}
	return p.Save()
}

// Proxy returns the proxy configuration, or nil when proxying is off.
func (p *Plugin) Proxy() *api.ProxyConfig {
	if !p.ProxyHost.Enabled() || strings.TrimSpace(p.ProxyHost.Value()) == "" {
		return nil
	}
	return &api.ProxyConfig{
		Scheme:   p.ProxyScheme.Value(),
		Host:     strings.TrimSpace(p.ProxyHost.Value()),
		Port:     int(p.ProxyPort.Value()),
		User:     p.ProxyUser.Value(),
		Password: p.ProxyPassword.Value(),
	}
}

func (p *Plugin) Debounce() time.Duration {
	return time.Duration(p.DebounceMS.Value()) * time.Millisecond
}

func (p *Plugin) Timeout() time.Duration {
	return time.Duration(p.TimeoutMS.Value()) * time.Millisecond
}

func (p *Plugin) CacheTTL() time.Duration {
	return time.Duration(p.CacheTTLHours.Value()) * time.Hour
}

func flatten(prefix string, in map[string]any, out aspect.Store) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if m, ok := v.(map[string]any); ok {
			flatten(key, m, out)
			continue
		}
		out[key] = v
	}
}

func nest(flat aspect.Store) map[string]any {
	out := map[string]any{}
	for k, v := range flat {
		parts := strings.Split(k, ".")
		m := out
		for _, part := range parts[:len(parts)-1] {
			next, ok := m[part].(map[string]any)
			if !ok {
				next = map[string]any{}
				m[part] = next
			}
			m = next
		}
		m[parts[len(parts)-1]] = v
	}
	return out
}
