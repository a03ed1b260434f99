package browser

// DeviceProfile is a named emulation preset applied to a session.
type DeviceProfile struct {
	Name      string
	UserAgent string
	Width     int64
	Height    int64
	Scale     float64
	Mobile    bool
}

// devices holds the known emulation presets. The original tooling drove
// the marketplace's mobile web flow, so the presets are phones.
var devices = map[string]DeviceProfile{
	"iPhone 13": {
		Name:      "iPhone 13",
		UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 15_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/15.0 Mobile/15E148 Safari/604.1",
		Width:     390,
		Height:    844,
		Scale:     3,
		Mobile:    true,
	},
	"iPhone 12": {
		Name:      "iPhone 12",
		UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 14_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.0 Mobile/15E148 Safari/604.1",
		Width:     390,
		Height:    844,
		Scale:     3,
		Mobile:    true,
	},
	"iPhone SE": {
		Name:      "iPhone SE",
		UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 15_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/15.0 Mobile/15E148 Safari/604.1",
		Width:     375,
		Height:    667,
		Scale:     2,
		Mobile:    true,
	},
	"Pixel 7": {
		Name:      "Pixel 7",
		UserAgent: "Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/116.0.0.0 Mobile Safari/537.36",
		Width:     412,
		Height:    915,
		Scale:     2.625,
		Mobile:    true,
	},
}

// LookupDevice returns the preset for name, falling back to fallback
// when the name is unknown. The second return reports whether the
// requested name was recognized.
func LookupDevice(name, fallback string) (DeviceProfile, bool) {
	if d, ok := devices[name]; ok {
		return d, true
	}
	if d, ok := devices[fallback]; ok {
		return d, false
	}
	// Last resort: the hardcoded default preset.
	return devices["iPhone 13"], false
}

// DeviceNames returns the known preset names.
func DeviceNames() []string {
	names := make([]string, 0, len(devices))
	for name := range devices {
		names = append(names, name)
	}
	return names
}
