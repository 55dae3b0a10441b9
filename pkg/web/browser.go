package web

import (
	"os/exec"
	"runtime"

	"github.com/hashicorp/go-hclog"
)

// openBrowser tries to open the default browser with the given URL. The
// user can still navigate manually when it fails.
func openBrowser(url string, log hclog.Logger) {
	var err error

	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", url).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		err = exec.Command("open", url).Start()
	}

	if err != nil {
		log.Debug("could not open browser", "url", url, "error", err)
	}
}
