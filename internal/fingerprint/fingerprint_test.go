package fingerprint

import (
	"testing"
	"time"

	"github.com/hushmetrics/hushmetrics/internal/errs"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestNew_FailsClosed(t *testing.T) {
	t.Parallel()

	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty secret")
	} else if !errs.IsKind(err, errs.KindConfiguration) {
		t.Errorf("kind = %s, want configuration", errs.KindOf(err))
	}

	if _, err := New("short"); err == nil {
		t.Fatal("expected error for short secret")
	}
}

func TestFingerprint_DeterministicWithinEpoch(t *testing.T) {
	t.Parallel()

	h, err := New(testSecret)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	later := time.Date(2025, 3, 10, 23, 59, 59, 0, time.UTC)

	fp1 := h.Fingerprint("203.0.113.7", "Mozilla/5.0", at)
	fp2 := h.Fingerprint("203.0.113.7", "Mozilla/5.0", later)

	if fp1 != fp2 {
		t.Errorf("same (ip, ua) within one day should match: %s != %s", fp1, fp2)
	}
	if len(fp1) != TokenLength {
		t.Errorf("token length = %d, want %d", len(fp1), TokenLength)
	}
}

func TestFingerprint_UnlinkableAcrossEpochs(t *testing.T) {
	t.Parallel()

	h, _ := New(testSecret)

	day1 := time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC)
	day2 := time.Date(2025, 3, 11, 0, 1, 0, 0, time.UTC)

	fp1 := h.Fingerprint("203.0.113.7", "Mozilla/5.0", day1)
	fp2 := h.Fingerprint("203.0.113.7", "Mozilla/5.0", day2)

	if fp1 == fp2 {
		t.Error("same visitor on different days should be unlinkable")
	}
}

func TestFingerprint_DistinctVisitors(t *testing.T) {
	t.Parallel()

	h, _ := New(testSecret)
	at := time.Now()

	cases := []struct {
		name     string
		ip1, ua1 string
		ip2, ua2 string
	}{
		{"different_ip", "203.0.113.7", "Mozilla/5.0", "203.0.113.8", "Mozilla/5.0"},
		{"different_ua", "203.0.113.7", "Mozilla/5.0", "203.0.113.7", "curl/8.0"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if h.Fingerprint(tc.ip1, tc.ua1, at) == h.Fingerprint(tc.ip2, tc.ua2, at) {
				t.Error("distinct visitors should produce distinct tokens")
			}
		})
	}
}

func TestFingerprint_ProcessesAgree(t *testing.T) {
	t.Parallel()

	// Two hashers with the same secret stand in for two processes.
	h1, _ := New(testSecret)
	h2, _ := New(testSecret)

	at := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	if h1.Fingerprint("198.51.100.1", "ua", at) != h2.Fingerprint("198.51.100.1", "ua", at) {
		t.Error("processes sharing a secret and date must not diverge")
	}

	other, _ := New("ffffffffffffffffffffffffffffffff")
	if h1.Fingerprint("198.51.100.1", "ua", at) == other.Fingerprint("198.51.100.1", "ua", at) {
		t.Error("different secrets should produce different tokens")
	}
}

func TestFingerprint_ConcurrentEpochRotation(t *testing.T) {
	t.Parallel()

	h, _ := New(testSecret)
	done := make(chan struct{})

	for i := 0; i < 8; i++ {
		go func(i int) {
			defer func() { done <- struct{}{} }()
			day := time.Date(2025, 3, 10+i%2, 8, 0, 0, 0, time.UTC)
			for j := 0; j < 200; j++ {
				h.Fingerprint("203.0.113.7", "Mozilla/5.0", day)
			}
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	// Salt cache must still answer correctly after cross-epoch churn.
	at := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	fp1 := h.Fingerprint("203.0.113.7", "Mozilla/5.0", at)
	fp2 := h.Fingerprint("203.0.113.7", "Mozilla/5.0", at)
	if fp1 != fp2 {
		t.Error("fingerprint unstable after concurrent epoch rotation")
	}
}
