package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

type sessionFile struct {
	Saved   time.Time      `toml:"saved"`
	Cookies []storedCookie `toml:"cookie"`
}

type storedCookie struct {
	Name  string `toml:"name"`
	Value string `toml:"value"`
}

// LoadSessionCookies reads the cookies saved by SaveSessionCookies. A
// missing file yields no cookies.
func LoadSessionCookies(path string) ([]*http.Cookie, error) {
	var f sessionFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading session: %w", err)
	}
	cookies := make([]*http.Cookie, 0, len(f.Cookies))
	for _, c := range f.Cookies {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	return cookies, nil
}

// SaveSessionCookies writes cookies to path readable by the owner only. No
// cookies removes the file.
func SaveSessionCookies(path string, cookies []*http.Cookie) error {
	if len(cookies) == 0 {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing session: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating session dir: %w", err)
	}
	f := sessionFile{Saved: time.Now().UTC()}
	for _, c := range cookies {
		f.Cookies = append(f.Cookies, storedCookie{Name: c.Name, Value: c.Value})
	}
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating session file: %w", err)
	}
	defer out.Close()
	return toml.NewEncoder(out).Encode(f)
}
