package browser

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/proto"
)

// savedCookie is one entry of a browser cookie export. Both the bare array
// form and the {"cookies": [...]} storage-state form are accepted.
type savedCookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite"`
}

// LoadCookies reads a saved cookie file into CDP cookie params.
func LoadCookies(path string) ([]*proto.NetworkCookieParam, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("browser: read cookies: %w", err)
	}
	return ParseCookies(data)
}

// ParseCookies decodes cookie JSON. Entries without a name are skipped.
func ParseCookies(data []byte) ([]*proto.NetworkCookieParam, error) {
	var list []savedCookie
	if err := json.Unmarshal(data, &list); err != nil {
		var state struct {
			Cookies []savedCookie `json:"cookies"`
		}
		if err2 := json.Unmarshal(data, &state); err2 != nil {
			return nil, fmt.Errorf("browser: parse cookies: %w", err)
		}
		list = state.Cookies
	}

	out := make([]*proto.NetworkCookieParam, 0, len(list))
	for _, c := range list {
		if c.Name == "" {
			continue
		}
		p := &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: sameSite(c.SameSite),
		}
		if p.Path == "" {
			p.Path = "/"
		}
		if c.Expires > 0 {
			p.Expires = proto.TimeSinceEpoch(c.Expires)
		}
		out = append(out, p)
	}
	return out, nil
}

// ToHTTPCookies converts CDP cookies for net/http clients.
func ToHTTPCookies(cookies []*proto.NetworkCookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		hc := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HttpOnly: c.HTTPOnly,
			Secure:   c.Secure,
		}
		if c.Expires > 0 {
			hc.Expires = time.Unix(int64(c.Expires), 0)
		}
		out = append(out, hc)
	}
	return out
}

func sameSite(v string) proto.NetworkCookieSameSite {
	switch strings.ToLower(v) {
	case "strict":
		return proto.NetworkCookieSameSiteStrict
	case "lax":
		return proto.NetworkCookieSameSiteLax
	case "none", "no_restriction":
		return proto.NetworkCookieSameSiteNone
	default:
		return ""
	}
}
