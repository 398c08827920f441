package npmjs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	logger "github.com/sirupsen/logrus"

	"github.com/forgeutils/check-updates/domain"
)

const (
	registryName = "npm"

	// DefaultBaseURL is the public npm registry endpoint.
	DefaultBaseURL = "https://registry.npmjs.org"

	// The abbreviated metadata format carries the version list without the
	// full readme and per-version manifests.
	acceptAbbreviated = "application/vnd.npm.install-v1+json"
)

// Client resolves package versions against an npm registry.
type Client struct {
	http    *http.Client
	baseURL string
}

// New creates an npm registry client. An empty baseURL uses the public
// registry.
func New(httpClient *http.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{http: httpClient, baseURL: baseURL}
}

func (c *Client) Name() string { return registryName }

// Lookup fetches the version list for a package. Scoped names are escaped
// so the slash survives as part of the path segment.
func (c *Client) Lookup(ctx context.Context, name string) (*domain.PackageInfo, error) {
	endpoint := fmt.Sprintf("%s/%s", c.baseURL, url.PathEscape(name))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", name, err)
	}
	req.Header.Set("Accept", acceptAbbreviated)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query npm registry for %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", name, domain.ErrPackageNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("npm registry returned %d for %s", resp.StatusCode, name)
	}

	var payload struct {
		Name     string `json:"name"`
		DistTags struct {
			Latest string `json:"latest"`
		} `json:"dist-tags"`
		Versions map[string]struct {
			Deprecated string `json:"deprecated"`
		} `json:"versions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode npm response for %s: %w", name, err)
	}

	info := &domain.PackageInfo{Name: payload.Name}
	for version := range payload.Versions {
		v, err := domain.ParseVersion(version)
		if err != nil {
			logger.Debugf("[npm] skipping unparseable version %s of %s", version, name)
			continue
		}
		info.Versions = append(info.Versions, v)
	}

	if latest, err := domain.ParseVersion(payload.DistTags.Latest); err == nil {
		info.Latest = latest
		info.HasLatest = true
	}
	return info, nil
}
