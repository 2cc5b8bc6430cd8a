package resources

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/leapstack-labs/leapmapper/pkg/core"
)

// defaultHTTPTimeout bounds remote resource fetches.
const defaultHTTPTimeout = 30 * time.Second

// NotFoundError is returned when no VFS can open a resource.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("could not find resource %s", e.Resource)
}

// Is makes errors.Is(err, fs.ErrNotExist) hold.
func (e *NotFoundError) Is(target error) bool {
	return target == fs.ErrNotExist
}

// Loader resolves resource paths and URLs.
type Loader struct {
	mu     sync.RWMutex
	user   []VFS
	def    VFS
	client *http.Client
}

// NewLoader creates a loader over def (the working directory when nil).
func NewLoader(def VFS) *Loader {
	if def == nil {
		def = NewOSVFS(".")
	}
	return &Loader{
		def:    def,
		client: &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// WithHTTPClient replaces the client used for http and https locations.
func (l *Loader) WithHTTPClient(c *http.Client) *Loader {
	l.client = c
	return l
}

// AddVFS installs a user implementation ahead of the default one.
// Invalid implementations are kept but skipped at lookup time.
func (l *Loader) AddVFS(v VFS) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.user = append(l.user, v)
}

// VFS returns the implementations in lookup order.
func (l *Loader) VFS() []VFS {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]VFS, 0, len(l.user)+1)
	out = append(out, l.user...)
	return append(out, l.def)
}

// Open returns a stream for the resource from the first VFS that has it.
func (l *Loader) Open(resource string) (io.ReadCloser, error) {
	for _, v := range l.VFS() {
		if !v.Valid() {
			continue
		}
		rc, err := v.Open(resource)
		if err == nil {
			return rc, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to open resource %s: %w", resource, err)
		}
	}
	return nil, &NotFoundError{Resource: resource}
}

// OpenURL returns a stream for a file, http or https location.
func (l *Loader) OpenURL(location string) (io.ReadCloser, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", location, err)
	}
	switch u.Scheme {
	case "file":
		p := u.Path
		if p == "" {
			p = u.Opaque
		}
		f, err := os.Open(p) //nolint:gosec // location comes from the description
		if err != nil {
			return nil, fmt.Errorf("failed to open url %s: %w", location, err)
		}
		return f, nil
	case "http", "https":
		resp, err := l.client.Get(location) //nolint:noctx // assembly has no cancellation
		if err != nil {
			return nil, fmt.Errorf("failed to fetch url %s: %w", location, err)
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("failed to fetch url %s: status %s", location, resp.Status)
		}
		return resp.Body, nil
	default:
		return nil, fmt.Errorf("unsupported url scheme %q in %s", u.Scheme, location)
	}
}

// Properties loads a property set from a resource path.
func (l *Loader) Properties(resource string) (core.Properties, error) {
	rc, err := l.Open(resource)
	if err != nil {
		return nil, err
	}
	return readProperties(resource, rc)
}

// URLProperties loads a property set from a URL.
func (l *Loader) URLProperties(location string) (core.Properties, error) {
	rc, err := l.OpenURL(location)
	if err != nil {
		return nil, err
	}
	name := location
	if u, err := url.Parse(location); err == nil {
		name = u.Path
	}
	return readProperties(name, rc)
}

func readProperties(name string, rc io.ReadCloser) (core.Properties, error) {
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	props, err := ParseProperties(path.Ext(strings.ToLower(name)), data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return props, nil
}
