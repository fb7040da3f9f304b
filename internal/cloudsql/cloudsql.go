// Package cloudsql resolves the optional audit database connection string.
package cloudsql

import (
	"errors"
	"fmt"
	"net/url"
	"os"
)

// ErrNotConfigured means no database settings are present, so the console
// runs without a persistent activity log.
var ErrNotConfigured = errors.New("no database configured")

// BuildDatabaseURL returns DATABASE_URL when set. Otherwise it builds a
// Unix-socket DSN from INSTANCE_CONNECTION_NAME, DB_USER, DB_PASSWORD and
// DB_NAME, as mounted by Cloud Run under /cloudsql.
func BuildDatabaseURL() (string, error) {
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		return dbURL, nil
	}

	instance := os.Getenv("INSTANCE_CONNECTION_NAME")
	if instance == "" {
		return "", ErrNotConfigured
	}

	user := os.Getenv("DB_USER")
	name := os.Getenv("DB_NAME")
	if user == "" || name == "" {
		return "", fmt.Errorf("DB_USER and DB_NAME must be set when using INSTANCE_CONNECTION_NAME")
	}

	dsn := fmt.Sprintf("host=/cloudsql/%s user=%s dbname=%s sslmode=disable", instance, user, name)
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		dsn += " password=" + password
	}
	return dsn, nil
}

// ConnectionInfo describes the configured connection without secrets.
func ConnectionInfo() map[string]string {
	info := make(map[string]string)

	switch {
	case os.Getenv("DATABASE_URL") != "":
		info["connection_type"] = "direct"
		info["database_url"] = RedactURL(os.Getenv("DATABASE_URL"))
	case os.Getenv("INSTANCE_CONNECTION_NAME") != "":
		instance := os.Getenv("INSTANCE_CONNECTION_NAME")
		info["connection_type"] = "cloud_sql"
		info["instance"] = instance
		info["user"] = os.Getenv("DB_USER")
		info["database"] = os.Getenv("DB_NAME")
		info["socket_path"] = "/cloudsql/" + instance
	default:
		info["connection_type"] = "none"
	}

	return info
}

// RedactURL masks the password of a postgres:// URL. Other strings are
// returned unchanged.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); !ok {
		return raw
	}
	u.User = url.UserPassword(u.User.Username(), "***")
	return u.String()
}
