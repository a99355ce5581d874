package download

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jdx/go-netrc"
)

// DefaultHost is the Earthdata Login host credentials are keyed by.
const DefaultHost = "urs.earthdata.nasa.gov"

var (
	// ErrNetrcNotFound is returned when the credential store does not exist.
	ErrNetrcNotFound = errors.New("netrc file not found")

	// ErrNoCredentials is returned when the store has no usable entry for a host.
	ErrNoCredentials = errors.New("no credentials for host")
)

// Credentials is a login/password pair for one host.
type Credentials struct {
	Host     string
	Login    string
	Password string
}

// DefaultNetrcPath returns ~/.netrc, honouring $NETRC when set.
func DefaultNetrcPath() string {
	if p := os.Getenv("NETRC"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".netrc"
	}
	return filepath.Join(home, ".netrc")
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// LoadCredentials reads the login and password for host from a netrc file.
func LoadCredentials(path, host string) (Credentials, error) {
	if host == "" {
		host = DefaultHost
	}
	path = ExpandHome(path)

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Credentials{}, fmt.Errorf("%w: %s", ErrNetrcNotFound, path)
		}
		return Credentials{}, fmt.Errorf("failed to stat netrc %s: %w", path, err)
	}

	n, err := netrc.Parse(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to parse netrc %s: %w", path, err)
	}

	m := n.Machine(host)
	if m == nil {
		return Credentials{}, fmt.Errorf("%w %s in %s", ErrNoCredentials, host, path)
	}

	creds := Credentials{
		Host:     host,
		Login:    m.Get("login"),
		Password: m.Get("password"),
	}
	if creds.Login == "" {
		return Credentials{}, fmt.Errorf("%w %s in %s: missing login", ErrNoCredentials, host, path)
	}

	return creds, nil
}
