package credential

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// PersistentJar forwards to an http.CookieJar and mirrors the credential cookie to a
// Persister. Every cookie the backend rotates is saved; every expiry, including the one
// Source.Clear issues, deletes the saved copy.
type PersistentJar struct {
	http.CookieJar

	name   string
	store  Persister
	logger *zap.Logger
	now    func() time.Time
}

// NewPersistentJar wraps jar. name is the credential cookie; other cookies are not persisted.
func NewPersistentJar(jar http.CookieJar, name string, store Persister, logger *zap.Logger) *PersistentJar {
	if name == "" {
		name = DefaultCookieName
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PersistentJar{CookieJar: jar, name: name, store: store, logger: logger, now: time.Now}
}

// SetCookies implements http.CookieJar.
func (j *PersistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.CookieJar.SetCookies(u, cookies)

	for _, c := range cookies {
		if c.Name != j.name {
			continue
		}
		now := j.now()
		if removes(c, now) {
			j.forget()
			continue
		}
		stored := &Stored{
			Name:     c.Name,
			Value:    c.Value,
			URL:      u.String(),
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HTTPOnly: c.HttpOnly,
			SavedAt:  now.UTC(),
		}
		if c.MaxAge > 0 {
			stored.Expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		}
		if err := j.store.Save(stored); err != nil {
			j.logger.Warn("failed to persist credential", zap.Error(err))
		}
	}
}

// Restore seeds the jar with the persisted credential and reports whether one was found.
// A copy that is unusable is deleted.
func (j *PersistentJar) Restore() (bool, error) {
	stored, err := j.store.Load()
	if errors.Is(err, ErrNotStored) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if stored.Name != j.name {
		j.forget()
		return false, nil
	}
	if !stored.Expires.IsZero() && !stored.Expires.After(j.now()) {
		j.forget()
		return false, nil
	}
	u, err := url.Parse(stored.URL)
	if err != nil || u.Host == "" {
		j.forget()
		return false, fmt.Errorf("stored credential has invalid url %q", stored.URL)
	}

	j.CookieJar.SetCookies(u, []*http.Cookie{{
		Name:     stored.Name,
		Value:    stored.Value,
		Domain:   stored.Domain,
		Path:     stored.Path,
		Expires:  stored.Expires,
		Secure:   stored.Secure,
		HttpOnly: stored.HTTPOnly,
	}})
	j.logger.Info("restored persisted credential", zap.String("url", u.Redacted()))
	return true, nil
}

func (j *PersistentJar) forget() {
	if err := j.store.Delete(); err != nil {
		j.logger.Warn("failed to delete persisted credential", zap.Error(err))
	}
}

func removes(c *http.Cookie, now time.Time) bool {
	return c.Value == "" || c.MaxAge < 0 || (!c.Expires.IsZero() && !c.Expires.After(now))
}
