package pypi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	logger "github.com/sirupsen/logrus"

	"github.com/forgeutils/check-updates/domain"
)

const (
	registryName = "pypi"

	// DefaultBaseURL is the public PyPI JSON API endpoint.
	DefaultBaseURL = "https://pypi.org"
)

// Client resolves package versions against the PyPI JSON API.
type Client struct {
	http    *http.Client
	baseURL string
}

// New creates a PyPI client. An empty baseURL uses the public index.
func New(httpClient *http.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{http: httpClient, baseURL: baseURL}
}

func (c *Client) Name() string { return registryName }

// Lookup fetches the release list for a package. Releases whose files are
// all yanked are dropped, matching what an installer would refuse to pick.
func (c *Client) Lookup(ctx context.Context, name string) (*domain.PackageInfo, error) {
	url := fmt.Sprintf("%s/pypi/%s/json", c.baseURL, domain.NormalizePythonName(name))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", name, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query pypi for %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", name, domain.ErrPackageNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pypi returned %d for %s", resp.StatusCode, name)
	}

	var payload struct {
		Info struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"info"`
		Releases map[string][]releaseFile `json:"releases"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode pypi response for %s: %w", name, err)
	}

	info := &domain.PackageInfo{Name: domain.NormalizePythonName(payload.Info.Name)}
	for release, files := range payload.Releases {
		if allYanked(files) {
			continue
		}
		v, err := domain.ParseVersion(release)
		if err != nil {
			logger.Debugf("[pypi] skipping unparseable release %s of %s", release, name)
			continue
		}
		info.Versions = append(info.Versions, v)
	}

	if latest, err := domain.ParseVersion(payload.Info.Version); err == nil {
		info.Latest = latest
		info.HasLatest = true
	}
	return info, nil
}

type releaseFile struct {
	Yanked bool `json:"yanked"`
}

// allYanked reports whether every file of a release was yanked. A release
// with no files at all is kept; the index gives no yank signal for it.
func allYanked(files []releaseFile) bool {
	if len(files) == 0 {
		return false
	}
	for _, f := range files {
		if !f.Yanked {
			return false
		}
	}
	return true
}
