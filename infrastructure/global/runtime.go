package global

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/forgeutils/check-updates/domain"
)

const defaultReleaseIndexURL = "https://endoflife.date"

// ReleaseIndex answers "what is the newest patch of each Python series".
// It is a seam so tests never reach the network.
type ReleaseIndex interface {
	LatestPatches(ctx context.Context) (map[string]domain.Version, error)
}

// EndOfLifeIndex reads the Python release cycles from the endoflife.date
// API.
type EndOfLifeIndex struct {
	client  *http.Client
	baseURL string
}

// NewEndOfLifeIndex creates an index client. An empty base URL selects the
// public endoflife.date API.
func NewEndOfLifeIndex(client *http.Client, baseURL string) *EndOfLifeIndex {
	if client == nil {
		client = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = defaultReleaseIndexURL
	}
	return &EndOfLifeIndex{client: client, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// LatestPatches maps each Python 3 series ("3.11") to its newest patch
// release.
func (e *EndOfLifeIndex) LatestPatches(ctx context.Context) (map[string]domain.Version, error) {
	url := e.baseURL + "/api/python.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	var cycles []struct {
		Cycle  string `json:"cycle"`
		Latest string `json:"latest"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&cycles); err != nil {
		return nil, fmt.Errorf("failed to decode release cycles: %w", err)
	}

	latest := make(map[string]domain.Version, len(cycles))
	for _, cycle := range cycles {
		if !strings.HasPrefix(cycle.Cycle, "3.") {
			continue
		}
		v, err := domain.ParseVersion(cycle.Latest)
		if err != nil {
			continue
		}
		latest[cycle.Cycle] = v
	}
	return latest, nil
}

// RuntimeCheck is the verdict for one installed uv-managed Python series.
type RuntimeCheck struct {
	// Series is the major.minor line ("3.11").
	Series    string
	Installed domain.Version
	Latest    domain.Version
	HasUpdate bool
}

// RuntimeChecker compares the uv-managed Python installations against the
// release index.
type RuntimeChecker struct {
	runner Runner
	index  ReleaseIndex
}

// NewRuntimeChecker creates a runtime checker.
func NewRuntimeChecker(runner Runner, index ReleaseIndex) *RuntimeChecker {
	return &RuntimeChecker{runner: runner, index: index}
}

// Check enumerates the installed interpreters via `uv python list` and
// reports each series against its newest patch. A missing uv or an
// unreachable index yields no checks, never an error.
func (c *RuntimeChecker) Check(ctx context.Context) []RuntimeCheck {
	out, err := c.runner.Run(ctx, "uv", "python", "list")
	if err != nil {
		logger.Debugf("[global] uv python list not available: %v", err)
		return nil
	}

	installed := parseUvPythonList(string(out))
	if len(installed) == 0 {
		return nil
	}

	latest, err := c.index.LatestPatches(ctx)
	if err != nil {
		logger.Debugf("[global] release index unreachable: %v", err)
		return nil
	}

	seen := make(map[string]struct{})
	var checks []RuntimeCheck
	for _, v := range installed {
		series := fmt.Sprintf("%d.%d", v.Major, v.Minor)
		if _, dup := seen[series]; dup {
			continue
		}
		seen[series] = struct{}{}

		newest, ok := latest[series]
		if !ok {
			continue
		}
		checks = append(checks, RuntimeCheck{
			Series:    series,
			Installed: v,
			Latest:    newest,
			HasUpdate: domain.Less(v, newest),
		})
	}
	return checks
}

// parseUvPythonList extracts the installed CPython versions from
// `uv python list` output. Lines ending in "<download available>" are not
// installed; freethreaded builds and alternative implementations are
// skipped.
func parseUvPythonList(out string) []domain.Version {
	var versions []domain.Version
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.Contains(line, "<download available>") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		// "cpython-3.11.5-linux-x86_64-gnu"
		fullName := fields[0]
		if strings.Contains(fullName, "+freethreaded") {
			continue
		}
		parts := strings.SplitN(fullName, "-", 3)
		if len(parts) < 2 || parts[0] != "cpython" {
			continue
		}
		v, err := domain.ParseVersion(parts[1])
		if err != nil {
			continue
		}
		versions = append(versions, v)
	}
	return versions
}

// RuntimeUpgradeCommands suggests one `uv python install` per outdated
// series.
func RuntimeUpgradeCommands(checks []RuntimeCheck) []UpgradeCommand {
	var commands []UpgradeCommand
	for _, check := range checks {
		if !check.HasUpdate {
			continue
		}
		commands = append(commands, UpgradeCommand{
			Text: fmt.Sprintf("uv python install %s", check.Latest),
		})
	}
	return commands
}
