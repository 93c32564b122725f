package ingest

import "strings"

// Device classes.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceOther   = "other"
)

// ClassifyDevice buckets a user agent into a coarse device class.
// The raw user agent is consumed here and never stored.
func ClassifyDevice(userAgent string) string {
	if userAgent == "" {
		return DeviceOther
	}
	ua := strings.ToLower(userAgent)

	switch {
	case strings.Contains(ua, "ipad"),
		strings.Contains(ua, "tablet"),
		strings.Contains(ua, "android") && !strings.Contains(ua, "mobile"):
		return DeviceTablet
	case strings.Contains(ua, "mobile"),
		strings.Contains(ua, "iphone"),
		strings.Contains(ua, "android"):
		return DeviceMobile
	case strings.Contains(ua, "windows"),
		strings.Contains(ua, "macintosh"),
		strings.Contains(ua, "x11"),
		strings.Contains(ua, "linux"):
		return DeviceDesktop
	default:
		return DeviceOther
	}
}

// ClassifyBrowser extracts a coarse browser family from a user agent.
// Order matters: Chrome ships "Safari" in its UA, Edge ships both.
func ClassifyBrowser(userAgent string) string {
	if userAgent == "" {
		return "Other"
	}
	ua := strings.ToLower(userAgent)

	switch {
	case strings.Contains(ua, "edg/"), strings.Contains(ua, "edge/"):
		return "Edge"
	case strings.Contains(ua, "opr/"), strings.Contains(ua, "opera"):
		return "Opera"
	case strings.Contains(ua, "firefox/"):
		return "Firefox"
	case strings.Contains(ua, "chrome/"), strings.Contains(ua, "crios/"):
		return "Chrome"
	case strings.Contains(ua, "safari/"):
		return "Safari"
	default:
		return "Other"
	}
}
