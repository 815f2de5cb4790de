// Package history reads visit records from local browser history stores.
package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/runnerr0/webpersona/internal/analysis"
	"github.com/runnerr0/webpersona/internal/logger"
)

// DefaultLimit bounds a single fetch so worst-case analysis cost stays fixed.
const DefaultLimit = 20000

// Query selects the history window to read.
type Query struct {
	Since time.Time
	Limit int
}

// Source supplies the visit records for a window in one blocking fetch.
type Source interface {
	Fetch(ctx context.Context, q Query) ([]analysis.VisitRecord, error)
}

// Browser names accepted by Open and DefaultPath.
const (
	BrowserChrome   = "chrome"
	BrowserChromium = "chromium"
	BrowserEdge     = "edge"
	BrowserBrave    = "brave"
	BrowserFirefox  = "firefox"
	BrowserJSON     = "json"
)

// Open returns the Source for browser reading from path. An empty path is
// resolved with DefaultPath. log may be nil.
func Open(browser, path string, log *logger.Logger) (Source, error) {
	browser = strings.ToLower(strings.TrimSpace(browser))

	if path == "" {
		var err error
		path, err = DefaultPath(browser)
		if err != nil {
			return nil, err
		}
	}

	switch browser {
	case BrowserChrome, BrowserChromium, BrowserEdge, BrowserBrave, "":
		return &ChromiumSource{Path: path, Log: log}, nil
	case BrowserFirefox:
		return &FirefoxSource{Path: path, Log: log}, nil
	case BrowserJSON:
		return &JSONSource{Path: path}, nil
	default:
		return nil, fmt.Errorf("unsupported browser %q (use chrome, chromium, edge, brave, firefox or json)", browser)
	}
}

// DefaultPath returns the usual history database location for browser on the
// current OS, using the default profile.
func DefaultPath(browser string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}

	var base string
	switch runtime.GOOS {
	case "darwin":
		base = filepath.Join(home, "Library", "Application Support")
	case "windows":
		base = os.Getenv("LOCALAPPDATA")
		if base == "" {
			base = filepath.Join(home, "AppData", "Local")
		}
	default:
		base = filepath.Join(home, ".config")
	}

	switch strings.ToLower(browser) {
	case BrowserChrome, "":
		return chromiumProfile(base, "Google", "Chrome", "google-chrome"), nil
	case BrowserChromium:
		return chromiumProfile(base, "", "Chromium", "chromium"), nil
	case BrowserEdge:
		return chromiumProfile(base, "Microsoft", "Edge", "microsoft-edge"), nil
	case BrowserBrave:
		return chromiumProfile(base, "BraveSoftware", "Brave-Browser", "BraveSoftware/Brave-Browser"), nil
	case BrowserFirefox:
		return firefoxProfile(home)
	case BrowserJSON:
		return "", fmt.Errorf("json history requires an explicit file path")
	default:
		return "", fmt.Errorf("unsupported browser %q", browser)
	}
}

func chromiumProfile(base, vendor, product, linuxDir string) string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(base, filepath.Join(vendor, product), "Default", "History")
	case "windows":
		return filepath.Join(base, filepath.Join(vendor, product), "User Data", "Default", "History")
	default:
		return filepath.Join(base, linuxDir, "Default", "History")
	}
}

// firefoxProfile picks the most recently modified *.default* profile.
func firefoxProfile(home string) (string, error) {
	var root string
	switch runtime.GOOS {
	case "darwin":
		root = filepath.Join(home, "Library", "Application Support", "Firefox", "Profiles")
	case "windows":
		root = filepath.Join(os.Getenv("APPDATA"), "Mozilla", "Firefox", "Profiles")
	default:
		root = filepath.Join(home, ".mozilla", "firefox")
	}

	matches, err := filepath.Glob(filepath.Join(root, "*.default*", "places.sqlite"))
	if err != nil {
		return "", fmt.Errorf("locating firefox profile: %w", err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no firefox profile with places.sqlite under %s", root)
	}

	sort.Slice(matches, func(i, j int) bool {
		return modTime(matches[i]).After(modTime(matches[j]))
	})
	return matches[0], nil
}

func modTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

func limitOrDefault(n int) int {
	if n <= 0 {
		return DefaultLimit
	}
	return n
}
