package api

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

// ProxyConfig describes an outbound proxy. Scheme is "http" (default),
// "https", "socks5" or "socks5h".
type ProxyConfig struct {
	Scheme   string
	Host     string
	Port     int
	User     string
	Password string
}

// URL renders the proxy as a URL with credentials.
func (p ProxyConfig) URL() (*url.URL, error) {
	if p.Host == "" {
		return nil, errors.New("proxy host is empty")
	}
	scheme := p.Scheme
	switch scheme {
	case "":
		scheme = "http"
	case "socks":
		scheme = "socks5"
	}
	host := p.Host
	if p.Port > 0 {
		host = net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
	}
	u := &url.URL{Scheme: scheme, Host: host}
	if p.User != "" {
		u.User = url.UserPassword(p.User, p.Password)
	}
	return u, nil
}

func newTransport(p *ProxyConfig) (*http.Transport, error) {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if p == nil || p.Host == "" {
		return tr, nil
	}
	u, err := p.URL()
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http", "https":
		tr.Proxy = http.ProxyURL(u)
	case "socks5", "socks5h":
		direct := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
		d, err := proxy.FromURL(u, direct)
		if err != nil {
			return nil, fmt.Errorf("socks proxy %s: %w", u.Host, err)
		}
		cd, ok := d.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("socks proxy %s: dialer does not support contexts", u.Host)
		}
		tr.Proxy = nil
		tr.DialContext = cd.DialContext
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
	return tr, nil
}
