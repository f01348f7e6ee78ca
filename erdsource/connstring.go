package erdsource

import (
	"errors"
	"net"
	"net/url"
)

const POSTGRESQL = "postgresql"

var (
	ErrUnsupportedDatabase = errors.New("only PostgreSQL is supported for connection string generation")
	ErrMissingField        = errors.New("missing required fields for connection string generation")
)

// Params are the fields of a connection form.
type Params struct {
	DatabaseType string `json:"databaseType"`
	Host         string `json:"host"`
	Port         string `json:"port"`
	Database     string `json:"database"`
	Username     string `json:"username"`
	Password     string `json:"password"`
}

// ConnString builds a postgresql:// URL from p. Credentials are escaped and an empty
// password is left out.
func ConnString(p Params) (string, error) {
	if p.DatabaseType != POSTGRESQL {
		return "", ErrUnsupportedDatabase
	}
	if p.Host == "" || p.Port == "" || p.Database == "" || p.Username == "" {
		return "", ErrMissingField
	}

	user := url.User(p.Username)
	if p.Password != "" {
		user = url.UserPassword(p.Username, p.Password)
	}
	u := &url.URL{
		Scheme: POSTGRESQL,
		User:   user,
		Host:   net.JoinHostPort(p.Host, p.Port),
		Path:   "/" + p.Database,
	}
	return u.String(), nil
}
