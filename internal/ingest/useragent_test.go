package ingest

import "testing"

const (
	uaChromeMac   = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	uaFirefoxWin  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0"
	uaSafariPhone = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1"
	uaEdgeWin     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0"
	uaAndroidTab  = "Mozilla/5.0 (Linux; Android 13; SM-X710) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	uaIPad        = "Mozilla/5.0 (iPad; CPU OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1"
)

func TestClassifyDevice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ua   string
		want string
	}{
		{"mac desktop", uaChromeMac, DeviceDesktop},
		{"windows desktop", uaFirefoxWin, DeviceDesktop},
		{"iphone", uaSafariPhone, DeviceMobile},
		{"ipad", uaIPad, DeviceTablet},
		{"android tablet", uaAndroidTab, DeviceTablet},
		{"empty", "", DeviceOther},
		{"curl", "curl/8.4.0", DeviceOther},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := ClassifyDevice(tt.ua); got != tt.want {
				t.Errorf("ClassifyDevice() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassifyBrowser(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ua   string
		want string
	}{
		{"chrome", uaChromeMac, "Chrome"},
		{"firefox", uaFirefoxWin, "Firefox"},
		{"safari ios", uaSafariPhone, "Safari"},
		{"edge over chrome token", uaEdgeWin, "Edge"},
		{"empty", "", "Other"},
		{"bot", "Googlebot/2.1", "Other"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := ClassifyBrowser(tt.ua); got != tt.want {
				t.Errorf("ClassifyBrowser() = %q, want %q", got, tt.want)
			}
		})
	}
}
