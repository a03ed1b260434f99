// Package browser is the session-driver boundary: isolated, proxied,
// device-emulated browsing sessions against the marketplace login page.
package browser

import (
	"context"
)

// Session describes one browsing session bound to a persistent profile
// directory.
type Session struct {
	// ProfileDir is the isolated user-data directory. Cookies and local
	// storage persist here across the interactive and headless opens.
	ProfileDir string
	// Proxy is the proxy server URL. Empty means direct.
	Proxy string
	// Device names an emulation preset. Unknown names fall back to the
	// driver's default.
	Device string
	// URL is the page the session navigates to.
	URL string
}

// Cookie is the subset of persisted cookie state the validity check
// inspects.
type Cookie struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

// PageState is what a headless reconnection observed.
type PageState struct {
	FinalURL string
	Cookies  []Cookie
}

// Driver opens browsing sessions. Implementations must create no state
// outside the session's profile directory.
type Driver interface {
	// OpenInteractive opens a visible session and blocks until the human
	// closes the browser window or ctx is cancelled. The session is
	// closed when it returns.
	OpenInteractive(ctx context.Context, s Session) error

	// OpenHeadless reopens the same profile without a visible window and
	// reports the navigation outcome and persisted cookies. The session
	// is closed before it returns, regardless of outcome.
	OpenHeadless(ctx context.Context, s Session) (*PageState, error)
}
