// Package browser provides shared chromedp configuration and isolated
// browser sessions for the verification scenarios.
package browser

import (
	"os"
	"os/exec"

	"github.com/chromedp/chromedp"

	"github.com/ibeckermayer/chatcheck/internal/config"
)

// MobileUserAgent is the iPhone Safari user agent used for the mobile layout checks
const MobileUserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 11_0 like Mac OS X) AppleWebKit/604.1.38 (KHTML, like Gecko) Version/11.0 Mobile/15A372 Safari/604.1"

// Options returns chromedp allocator options for cfg.
// All browser instances should use this to ensure consistent configuration.
func Options(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),

		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),

		// Keep the profile free of anything that could change page behavior
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
	)

	if cfg.Headless {
		opts = append(opts, chromedp.Flag("disable-gpu", true))
	}
	// Containers usually lack the namespaces Chrome's sandbox needs
	if cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
	}

	return opts
}

var chromeCandidates = []string{
	"headless-shell",
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
	"chrome",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
}

// LookPath finds a Chrome binary the way chromedp's allocator would, so
// callers can tell in advance whether a browser can be launched. The
// CHATCHECK_CHROME_PATH variable takes precedence.
func LookPath() (string, bool) {
	if p := os.Getenv("CHATCHECK_CHROME_PATH"); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	for _, name := range chromeCandidates {
		if p, err := exec.LookPath(name); err == nil {
			return p, true
		}
	}
	return "", false
}
