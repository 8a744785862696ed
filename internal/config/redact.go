package config

import (
	"net/url"
	"strings"

	"github.com/aqasim81/dmt/internal/database"
)

const redacted = "***"

// RedactURL masks the password and any authToken query value in a
// connection URL. If the URL cannot be parsed or holds no secret, it is
// returned unchanged.
func RedactURL(raw string) string {
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	out := redactPassword(raw, u)

	if token := u.Query().Get("authToken"); token != "" {
		out = strings.ReplaceAll(out, "authToken="+url.QueryEscape(token), "authToken="+redacted)
	}

	return out
}

// redactPassword replaces the password portion of the userinfo between
// "://" and "@" in raw.
func redactPassword(raw string, u *url.URL) string {
	if u.User == nil {
		return raw
	}

	if _, hasPassword := u.User.Password(); !hasPassword {
		return raw
	}

	schemeEnd := strings.Index(raw, "://")
	if schemeEnd < 0 {
		return raw
	}

	afterScheme := schemeEnd + len("://")

	atIdx := strings.Index(raw[afterScheme:], "@")
	if atIdx < 0 {
		return raw
	}

	userinfo := raw[afterScheme : afterScheme+atIdx]

	colonIdx := strings.Index(userinfo, ":")
	if colonIdx < 0 {
		return raw
	}

	return raw[:afterScheme] + userinfo[:colonIdx+1] + redacted + raw[afterScheme+atIdx:]
}

// RedactToken hides an auth token entirely; an empty token stays empty.
func RedactToken(token string) string {
	if token == "" {
		return ""
	}

	return redacted
}

// Target describes the configured database for logs, with credentials
// masked.
func (c *Config) Target() string {
	switch c.Database {
	case database.KindPostgres:
		return RedactURL(c.ConnectionString)
	case database.KindTurso:
		return RedactURL(c.TursoURL)
	default:
		return ""
	}
}
