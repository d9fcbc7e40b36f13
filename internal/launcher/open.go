package launcher

import (
	"fmt"
	"os/exec"
	"runtime"
)

// OpenCommand returns the command that opens url in the default browser on
// the given OS, or nil when the OS has no known opener.
func OpenCommand(goos, url string) *exec.Cmd {
	switch goos {
	case "darwin":
		return exec.Command("open", url)
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "linux", "freebsd", "openbsd", "netbsd":
		return exec.Command("xdg-open", url)
	default:
		return nil
	}
}

// Open starts the platform opener for url without waiting for it.
func Open(url string) error {
	cmd := OpenCommand(runtime.GOOS, url)
	if cmd == nil {
		return fmt.Errorf("no browser opener for %s", runtime.GOOS)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	go cmd.Wait()
	return nil
}
