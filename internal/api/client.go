package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultBaseURL is the public Compiler Explorer instance.
const DefaultBaseURL = "https://godbolt.org"

const maxErrorBody = 512

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	Proxy      *ProxyConfig
	UserAgent  string
	Logger     *zap.Logger
	HTTPClient *http.Client
}

// Client is safe for concurrent use; its configuration never changes after New.
type Client struct {
	base *url.URL
	http *http.Client
	log  *zap.Logger
	ua   string
}

func New(opts Options) (*Client, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("service url %q: %w", raw, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("service url %q: scheme must be http or https", raw)
	}
	hc := opts.HTTPClient
	if hc == nil {
		tr, err := newTransport(opts.Proxy)
		if err != nil {
			return nil, err
		}
		hc = &http.Client{Transport: tr, Timeout: opts.Timeout}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = "cexplorer"
	}
	return &Client{base: base, http: hc, log: log, ua: ua}, nil
}

// BaseURL returns the service root.
func (c *Client) BaseURL() string { return c.base.String() }

// Languages lists the languages the service supports.
func (c *Client) Languages(ctx context.Context) ([]Language, error) {
	var w []wireLanguage
	q := url.Values{"fields": {"id,name,extensions,defaultCompiler"}}
	if err := c.do(ctx, "list languages", http.MethodGet, "/api/languages", q, nil, &w); err != nil {
		return nil, err
	}
	out := make([]Language, len(w))
	for i, l := range w {
		out[i] = Language{ID: l.ID, Name: l.Name, Extensions: l.Extensions, DefaultCompiler: l.DefaultCompiler}
	}
	return out, nil
}

// Compilers lists the compilers available for language.
func (c *Client) Compilers(ctx context.Context, language string) ([]CompilerInfo, error) {
	var w []wireCompiler
	q := url.Values{"fields": {"id,name,lang,compilerType,semver"}}
	path := "/api/compilers/" + url.PathEscape(language)
	if err := c.do(ctx, "list compilers", http.MethodGet, path, q, nil, &w); err != nil {
		return nil, err
	}
	out := make([]CompilerInfo, len(w))
	for i, x := range w {
		out[i] = CompilerInfo{ID: x.ID, Name: x.Name, Language: x.Lang, CompilerType: x.CompilerType, Semver: x.Semver}
	}
	return out, nil
}

// Libraries lists the libraries available for language.
func (c *Client) Libraries(ctx context.Context, language string) ([]Library, error) {
	var w []wireLibraryInfo
	path := "/api/libraries/" + url.PathEscape(language)
	if err := c.do(ctx, "list libraries", http.MethodGet, path, nil, nil, &w); err != nil {
		return nil, err
	}
	out := make([]Library, len(w))
	for i, l := range w {
		lib := Library{ID: l.ID, Name: l.Name, URL: l.URL, Versions: make([]LibraryVersion, len(l.Versions))}
		for j, v := range l.Versions {
			lib.Versions[j] = LibraryVersion{ID: v.ID, Version: v.Version}
		}
		out[i] = lib
	}
	return out, nil
}

// Compile sends req and returns the service's result. Transport and service
// failures are returned as errors; a compile that fails is a result.
func (c *Client) Compile(ctx context.Context, req CompileRequest) (CompileResult, error) {
	var w wireCompileResult
	path := "/api/compiler/" + url.PathEscape(req.Compiler()) + "/compile"
	if err := c.do(ctx, "compile", http.MethodPost, path, nil, toWire(req), &w); err != nil {
		return CompileResult{}, err
	}
	return fromWire(w), nil
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Op: op, Err: err}
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.ua)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("request failed", zap.String("op", op), zap.String("url", u.String()), zap.Error(err))
		return &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()
	c.log.Debug("request done",
		zap.String("op", op),
		zap.String("url", u.String()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
