package orchestrator

import (
	"context"
	"strings"

	"github.com/kleinvault/kleinvault/internal/browser"
	"github.com/kleinvault/kleinvault/internal/models"
)

// authCookieMarkers are substrings that mark a cookie as an
// authentication cookie. Matching is case-insensitive.
var authCookieMarkers = []string{"session", "sid", "auth", "token", "login"}

// validate reopens the profile headlessly and decides whether the
// stored session is logged in. Any automation failure during the check
// counts as invalid; uncertain credentials never reach the registry.
func (o *Orchestrator) validate(job *models.LoginJob, session browser.Session) bool {
	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.HeadlessTimeout)
	defer cancel()

	state, err := o.driver.OpenHeadless(ctx, session)
	if err != nil {
		o.logger.Warn("headless validation failed",
			"job_id", job.ID,
			"error", err.Error(),
		)
		return false
	}

	return LoggedIn(state, o.cfg.LoginURL, o.cfg.LoginMarker)
}

// LoggedIn applies the two-step validity heuristic to a restored page:
// a session that no longer lands on the login page is logged in, and a
// session still on it is logged in only if an auth cookie survives.
func LoggedIn(state *browser.PageState, loginURL, loginMarker string) bool {
	if state == nil {
		return false
	}

	if state.FinalURL != "" && state.FinalURL != loginURL &&
		!strings.Contains(state.FinalURL, loginMarker) {
		return true
	}

	for _, c := range state.Cookies {
		name := strings.ToLower(c.Name)
		for _, marker := range authCookieMarkers {
			if strings.Contains(name, marker) {
				return true
			}
		}
	}
	return false
}
