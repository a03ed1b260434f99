package browser

import (
	"context"

	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/kleinvault/kleinvault/internal/errors"
	"github.com/kleinvault/kleinvault/internal/logging"
)

// ChromeDriver drives sessions through a local Chromium via the DevTools
// protocol. Each session launches its own browser process bound to the
// session's profile directory, so concurrent jobs never share state.
type ChromeDriver struct {
	execPath      string
	locale        string
	defaultDevice string
	logger        *logging.Logger
}

// ChromeOption configures a ChromeDriver.
type ChromeOption func(*ChromeDriver)

// WithExecPath sets the browser binary. Empty means auto-discover.
func WithExecPath(path string) ChromeOption {
	return func(d *ChromeDriver) {
		d.execPath = path
	}
}

// WithLocale sets the browser UI locale.
func WithLocale(locale string) ChromeOption {
	return func(d *ChromeDriver) {
		d.locale = locale
	}
}

// WithDefaultDevice sets the emulation preset used for unknown device
// names.
func WithDefaultDevice(name string) ChromeOption {
	return func(d *ChromeDriver) {
		d.defaultDevice = name
	}
}

// WithLogger sets the driver logger.
func WithLogger(logger *logging.Logger) ChromeOption {
	return func(d *ChromeDriver) {
		d.logger = logger
	}
}

// NewChromeDriver creates a Chromium-backed driver.
func NewChromeDriver(opts ...ChromeOption) *ChromeDriver {
	d := &ChromeDriver{
		locale:        "de-DE",
		defaultDevice: "iPhone 13",
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = logging.NewLogger()
	}
	return d
}

func (d *ChromeDriver) allocatorOptions(s Session, device DeviceProfile, headless bool) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.UserDataDir(s.ProfileDir),
		chromedp.UserAgent(device.UserAgent),
		chromedp.Flag("lang", d.locale),
	)
	if !headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if s.Proxy != "" {
		opts = append(opts, chromedp.ProxyServer(s.Proxy))
	}
	if d.execPath != "" {
		opts = append(opts, chromedp.ExecPath(d.execPath))
	}
	return opts
}

func (d *ChromeDriver) device(name string) DeviceProfile {
	device, known := LookupDevice(name, d.defaultDevice)
	if !known && name != "" {
		d.logger.Warn("unknown device profile, using default",
			"requested", name,
			"default", device.Name,
		)
	}
	return device
}

// OpenInteractive opens a visible, proxied, device-emulated window on
// the session URL and blocks until the human closes the browser. There
// is deliberately no timeout; cancel ctx to force the session closed.
func (d *ChromeDriver) OpenInteractive(ctx context.Context, s Session) error {
	device := d.device(s.Device)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, d.allocatorOptions(s, device, false)...)
	defer cancelAlloc()

	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	defer cancelTask()

	err := chromedp.Run(taskCtx,
		chromedp.EmulateViewport(device.Width, device.Height,
			chromedp.EmulateScale(device.Scale)),
		chromedp.Navigate(s.URL),
	)
	if err != nil {
		return &errors.ErrAutomation{Stage: "interactive open", Err: err}
	}

	d.logger.Info("interactive session open, waiting for user",
		"profile_dir", s.ProfileDir,
		"device", device.Name,
	)

	// The task context is cancelled when the browser process exits, i.e.
	// when the human closes the window.
	<-taskCtx.Done()
	return nil
}

// OpenHeadless reopens the session profile without a window, navigates
// to the session URL and reports where the navigation settled along
// with the persisted cookies. Bound the round-trip via ctx.
func (d *ChromeDriver) OpenHeadless(ctx context.Context, s Session) (*PageState, error) {
	device := d.device(s.Device)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, d.allocatorOptions(s, device, true)...)
	defer cancelAlloc()

	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	defer cancelTask()

	state := &PageState{}
	err := chromedp.Run(taskCtx,
		chromedp.EmulateViewport(device.Width, device.Height,
			chromedp.EmulateScale(device.Scale)),
		chromedp.Navigate(s.URL),
		chromedp.Location(&state.FinalURL),
		chromedp.ActionFunc(func(ctx context.Context) error {
			cookies, err := storage.GetCookies().Do(ctx)
			if err != nil {
				return err
			}
			for _, c := range cookies {
				state.Cookies = append(state.Cookies, Cookie{Name: c.Name, Domain: c.Domain})
			}
			return nil
		}),
	)
	if err != nil {
		return nil, &errors.ErrAutomation{Stage: "headless check", Err: err}
	}

	return state, nil
}

// Ensure ChromeDriver implements the Driver interface
var _ Driver = (*ChromeDriver)(nil)
