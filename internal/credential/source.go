package credential

import (
	"errors"
	"net/http"
	"net/url"
	"path"

	"github.com/spec-kit/staff-console/internal/domain"
)

// DefaultCookieName is the cookie the backend stores the credential in.
const DefaultCookieName = "token"

// Source reads the live credential from the cookie jar shared with the backend client.
type Source struct {
	jar   http.CookieJar
	probe *url.URL
	name  string
}

// NewSource builds a Source that looks the credential up as the jar would send it to probe.
// probe should be the most specific backend URL the cookie is set on (the login endpoint).
func NewSource(jar http.CookieJar, probe *url.URL, name string) (*Source, error) {
	if jar == nil {
		return nil, errors.New("cookie jar required")
	}
	if probe == nil {
		return nil, errors.New("probe url required")
	}
	if name == "" {
		name = DefaultCookieName
	}
	return &Source{jar: jar, probe: probe, name: name}, nil
}

// Raw returns the raw credential token if the cookie is present.
func (s *Source) Raw() (string, bool) {
	for _, c := range s.jar.Cookies(s.probe) {
		if c.Name == s.name && c.Value != "" {
			return c.Value, true
		}
	}
	return "", false
}

// Current decodes the live credential.
func (s *Source) Current() (*domain.Claims, bool) {
	raw, ok := s.Raw()
	if !ok {
		return nil, false
	}
	return Decode(raw)
}

// Clear expires the credential cookie locally on every path that could hold it. When the jar
// is a PersistentJar the saved copy is deleted with it.
func (s *Source) Clear() {
	u := *s.probe
	p := u.Path
	if p == "" {
		p = "/"
	}
	for {
		u.Path = p
		s.jar.SetCookies(&u, []*http.Cookie{{Name: s.name, Value: "", Path: p, MaxAge: -1}})
		if p == "/" {
			return
		}
		p = path.Dir(p)
	}
}
