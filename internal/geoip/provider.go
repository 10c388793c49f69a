package geoip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Location is the geolocation of an address. Both fields may be empty.
type Location struct {
	Country string `json:"country"`
	City    string `json:"city"`
}

// IsEmpty reports whether no geolocation data is present.
func (l Location) IsEmpty() bool {
	return l.Country == "" && l.City == ""
}

// Provider resolves an address to a Location. Implementations must honour ctx
// cancellation.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, address string) (Location, error)
}

// ErrNoData is returned by a provider that answered but knows nothing about
// the address.
var ErrNoData = errors.New("no geolocation data")

// HTTPProviderConfig configures a JSON geolocation API.
type HTTPProviderConfig struct {
	Name string
	// URL is a template with %s for the address (e.g. "https://ipinfo.io/%s/json").
	// Without a placeholder the address is appended as a path segment.
	URL string
	// Key is sent as a bearer token when set.
	Key    string
	Client *http.Client
}

// HTTPProvider queries a JSON geolocation API such as ip-api.com or ipinfo.io.
type HTTPProvider struct {
	name   string
	url    string
	key    string
	client *http.Client
}

// NewHTTPProvider returns a provider for cfg. The request deadline comes from
// the caller's context.
func NewHTTPProvider(cfg HTTPProviderConfig) *HTTPProvider {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	name := cfg.Name
	if name == "" {
		if u, err := url.Parse(cfg.URL); err == nil && u.Host != "" {
			name = u.Host
		} else {
			name = "http"
		}
	}
	return &HTTPProvider{name: name, url: cfg.URL, key: cfg.Key, client: client}
}

// Name identifies the provider in logs.
func (p *HTTPProvider) Name() string { return p.name }

// Lookup fetches and decodes the provider response for address.
func (p *HTTPProvider) Lookup(ctx context.Context, address string) (Location, error) {
	target := p.url
	if strings.Contains(target, "%s") {
		target = fmt.Sprintf(target, url.PathEscape(address))
	} else {
		target = strings.TrimRight(target, "/") + "/" + url.PathEscape(address)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Location{}, fmt.Errorf("build request: %w", err)
	}
	if p.key != "" {
		req.Header.Set("Authorization", "Bearer "+p.key)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return Location{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8192))
	if err != nil {
		return Location{}, fmt.Errorf("read body: %w", err)
	}
	return decodeLocation(body)
}

// decodeLocation understands the common response shapes:
// ip-api.com {"status":"success","country":"..","city":".."},
// ipinfo.io {"country":"US","city":".."} and
// ipapi.co {"country_name":"..","country_code":"..","city":".."}.
func decodeLocation(body []byte) (Location, error) {
	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		return Location{}, fmt.Errorf("decode body: %w", err)
	}

	if status, ok := result["status"].(string); ok && status != "success" {
		msg, _ := result["message"].(string)
		return Location{}, fmt.Errorf("provider status %q: %s", status, msg)
	}

	var loc Location
	for _, field := range []string{"country", "country_name", "countryCode", "country_code"} {
		if s, ok := result[field].(string); ok && s != "" {
			loc.Country = s
			break
		}
	}
	if s, ok := result["city"].(string); ok {
		loc.City = s
	}
	if loc.IsEmpty() {
		return Location{}, ErrNoData
	}
	return loc, nil
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc struct {
	ID string
	Fn func(ctx context.Context, address string) (Location, error)
}

// Name identifies the provider in logs.
func (f ProviderFunc) Name() string { return f.ID }

// Lookup calls Fn.
func (f ProviderFunc) Lookup(ctx context.Context, address string) (Location, error) {
	return f.Fn(ctx, address)
}

// DefaultTimeout bounds a single provider call when none is configured.
const DefaultTimeout = 3 * time.Second
