package pg

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ConnectionDescriptor is a parsed connection string. It is immutable once
// parsed; derive variants with WithDatabase or MaintenanceDescriptor.
//
// Username and Password hold the percent-decoded values. A managed-cloud
// username of the form "admin@servername" survives decoding verbatim: the
// "@" inside the (encoded) userinfo is an authentication artifact, not the
// separator before the host.
type ConnectionDescriptor struct {
	Scheme   string
	Host     string
	Port     int
	Username string
	Password string
	Database string
	SSLMode  string
}

const defaultPort = 5432

// ParseDescriptor parses a postgres:// or postgresql:// connection string.
func ParseDescriptor(raw string) (*ConnectionDescriptor, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, &InvalidDescriptorError{Reason: fmt.Sprintf("unparseable URL: %v", err)}
	}

	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return nil, &InvalidDescriptorError{Reason: fmt.Sprintf("unrecognized scheme %q", u.Scheme)}
	}
	if u.Hostname() == "" {
		return nil, &InvalidDescriptorError{Reason: "missing host"}
	}

	port := defaultPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, &InvalidDescriptorError{Reason: fmt.Sprintf("invalid port %q", p)}
		}
	}

	database := strings.TrimPrefix(u.Path, "/")
	if database == "" || strings.Contains(database, "/") {
		return nil, &InvalidDescriptorError{Reason: fmt.Sprintf("missing or malformed database name in path %q", u.Path)}
	}

	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "prefer"
	}

	desc := &ConnectionDescriptor{
		Scheme:   u.Scheme,
		Host:     u.Hostname(),
		Port:     port,
		Database: database,
		SSLMode:  sslMode,
	}

	if u.User != nil {
		// url.Userinfo already percent-decodes username and password
		// independently.
		desc.Username = u.User.Username()
		desc.Password, _ = u.User.Password()
	}

	return desc, nil
}

// WithDatabase returns a copy of the descriptor targeting another database.
func (d *ConnectionDescriptor) WithDatabase(name string) *ConnectionDescriptor {
	clone := *d
	clone.Database = name
	return &clone
}

// MaintenanceDescriptor returns a copy targeting the "postgres" maintenance
// database, used for CREATE/DROP DATABASE which cannot run against the
// database they operate on.
func (d *ConnectionDescriptor) MaintenanceDescriptor() *ConnectionDescriptor {
	return d.WithDatabase("postgres")
}

// DSN re-encodes the descriptor into a connection string suitable for the
// driver. Reserved characters in the credentials are percent-encoded again.
func (d *ConnectionDescriptor) DSN() string {
	u := url.URL{
		Scheme:   d.Scheme,
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Database,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	if d.Username != "" {
		if d.Password != "" {
			u.User = url.UserPassword(d.Username, d.Password)
		} else {
			u.User = url.User(d.Username)
		}
	}
	return u.String()
}

// Redacted returns the descriptor with the password masked, safe for logs.
func (d *ConnectionDescriptor) Redacted() string {
	clone := *d
	if clone.Password != "" {
		clone.Password = "****"
	}
	u := url.URL{
		Scheme:   clone.Scheme,
		Host:     fmt.Sprintf("%s:%d", clone.Host, clone.Port),
		Path:     "/" + clone.Database,
		RawQuery: url.Values{"sslmode": []string{clone.SSLMode}}.Encode(),
	}
	if clone.Username != "" {
		u.User = url.User(clone.Username)
	}
	s := u.String()
	if clone.Password != "" {
		// Splice the mask in without re-encoding it.
		s = strings.Replace(s, "@", ":****@", 1)
	}
	return s
}

// ForceSSLEnv reports whether spawned external processes must run with
// PGSSLMODE set. Managed Azure hostnames always require SSL, as does any
// non-permissive sslmode.
func (d *ConnectionDescriptor) ForceSSLEnv() bool {
	if strings.Contains(d.Host, "azure.com") {
		return true
	}
	switch d.SSLMode {
	case "require", "verify-ca", "verify-full":
		return true
	}
	return false
}
