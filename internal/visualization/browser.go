package visualization

import (
	"fmt"
	"net/url"
	"os/exec"
	"path/filepath"
	"runtime"
)

// FileURL converts a local path to a file:// URL.
func FileURL(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String(), nil
}

// browserCommand returns the command that opens target on goos.
func browserCommand(goos, target string) (*exec.Cmd, error) {
	switch goos {
	case "linux":
		return exec.Command("xdg-open", target), nil
	case "darwin":
		return exec.Command("open", target), nil
	case "windows":
		return exec.Command("cmd", "/c", "start", target), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", goos)
	}
}

// OpenBrowser opens the specified URL in the user's default browser.
// It supports Linux (xdg-open), macOS (open), and Windows (cmd start).
func OpenBrowser(target string) error {
	cmd, err := browserCommand(runtime.GOOS, target)
	if err != nil {
		return err
	}
	return cmd.Start()
}
