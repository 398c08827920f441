package cratesio

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	logger "github.com/sirupsen/logrus"

	"github.com/forgeutils/check-updates/domain"
)

const (
	registryName = "crates"

	// DefaultBaseURL is the public crates.io API endpoint.
	DefaultBaseURL = "https://crates.io"

	// The crates.io crawler policy requires an identifying user agent.
	userAgent = "check-updates (https://github.com/forgeutils/check-updates)"
)

// Client resolves crate versions against the crates.io API.
type Client struct {
	http    *http.Client
	baseURL string
}

// New creates a crates.io client. An empty baseURL uses the public index.
func New(httpClient *http.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{http: httpClient, baseURL: baseURL}
}

func (c *Client) Name() string { return registryName }

// Lookup fetches the version list for a crate. Yanked versions are dropped.
func (c *Client) Lookup(ctx context.Context, name string) (*domain.PackageInfo, error) {
	url := fmt.Sprintf("%s/api/v1/crates/%s", c.baseURL, name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", name, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query crates.io for %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", name, domain.ErrPackageNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("crates.io returned %d for %s", resp.StatusCode, name)
	}

	var payload struct {
		Crate struct {
			Name             string `json:"name"`
			MaxStableVersion string `json:"max_stable_version"`
		} `json:"crate"`
		Versions []struct {
			Num    string `json:"num"`
			Yanked bool   `json:"yanked"`
		} `json:"versions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode crates.io response for %s: %w", name, err)
	}

	info := &domain.PackageInfo{Name: payload.Crate.Name}
	for _, version := range payload.Versions {
		if version.Yanked {
			continue
		}
		v, err := domain.ParseVersion(version.Num)
		if err != nil {
			logger.Debugf("[crates] skipping unparseable version %s of %s", version.Num, name)
			continue
		}
		info.Versions = append(info.Versions, v)
	}

	if latest, err := domain.ParseVersion(payload.Crate.MaxStableVersion); err == nil {
		info.Latest = latest
		info.HasLatest = true
	}
	return info, nil
}
