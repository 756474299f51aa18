package postgres

import (
	"net"
	"net/url"

	"cnb-rates/pkg/config"
)

// BuildDSN escapes the credentials, so passwords may contain URL
// metacharacters.
func BuildDSN(cfg config.PostgresConfig) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, cfg.Port),
		Path:     "/" + cfg.DBName,
		RawQuery: url.Values{"sslmode": {cfg.SSLMode}}.Encode(),
	}
	return u.String()
}
