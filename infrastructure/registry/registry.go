package registry

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	logger "github.com/sirupsen/logrus"

	"github.com/forgeutils/check-updates/domain"
)

// Registry manages all registered package index clients.
type Registry struct {
	registries map[string]domain.Registry
}

// NewRegistry creates an empty index registry.
func NewRegistry() *Registry {
	return &Registry{
		registries: make(map[string]domain.Registry),
	}
}

// Register adds an index client under its name.
func (r *Registry) Register(reg domain.Registry) {
	r.registries[reg.Name()] = reg
}

// Get returns the index client with the given name, or nil if not
// registered.
func (r *Registry) Get(name string) domain.Registry {
	return r.registries[name]
}

// Names returns the list of registered index names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.registries))
	for name := range r.registries {
		names = append(names, name)
	}
	return names
}

// NewHTTPClient builds the retrying HTTP client shared by the index
// clients. Retries cover transient network errors and 5xx responses; a 404
// is returned to the caller untouched.
func NewHTTPClient(timeout time.Duration) *http.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.HTTPClient.Timeout = timeout
	client.Logger = &retryLogger{}
	return client.StandardClient()
}

// retryLogger routes the retry client's leveled output into logrus at debug
// level so retries only show up with --verbose.
type retryLogger struct{}

func (l *retryLogger) Error(msg string, kv ...any) { logger.Debugf("[http] %s %v", msg, kv) }
func (l *retryLogger) Warn(msg string, kv ...any)  { logger.Debugf("[http] %s %v", msg, kv) }
func (l *retryLogger) Info(msg string, kv ...any)  { logger.Debugf("[http] %s %v", msg, kv) }
func (l *retryLogger) Debug(msg string, kv ...any) { logger.Debugf("[http] %s %v", msg, kv) }
