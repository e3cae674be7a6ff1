package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.BindAddr != "127.0.0.1:8420" {
		t.Fatalf("BindAddr = %q", cfg.BindAddr)
	}
	if cfg.CDPPort != 9222 {
		t.Fatalf("CDPPort = %d", cfg.CDPPort)
	}
	if cfg.PollIntervalMS != 500 || cfg.PollCeilingMS != 10000 {
		t.Fatalf("poll defaults = %d/%d", cfg.PollIntervalMS, cfg.PollCeilingMS)
	}
	if cfg.ResourceCap != 1000 {
		t.Fatalf("ResourceCap = %d", cfg.ResourceCap)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("WALNUT_CDP_PORT", "9333")
	t.Setenv("WALNUT_TAB_URL_FILTER", "example.com")
	t.Setenv("WALNUT_CONSOLE_CAP", "50")
	t.Setenv("WALNUT_PORT_CANDIDATES", "127.0.0.1:9000, 127.0.0.1:9001")
	t.Setenv("WALNUT_PORT_AUTO_FALLBACK", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.CDPPort != 9333 {
		t.Fatalf("CDPPort = %d, want 9333", cfg.CDPPort)
	}
	if cfg.TabURLFilter != "example.com" {
		t.Fatalf("TabURLFilter = %q", cfg.TabURLFilter)
	}
	if cfg.ConsoleCap != 50 {
		t.Fatalf("ConsoleCap = %d, want 50", cfg.ConsoleCap)
	}
	if len(cfg.PortCandidates) != 2 || cfg.PortCandidates[1] != "127.0.0.1:9001" {
		t.Fatalf("PortCandidates = %v", cfg.PortCandidates)
	}
	if cfg.PortAutoFallback {
		t.Fatalf("PortAutoFallback should be false")
	}
}

func TestLoadInvalidIntFallsBack(t *testing.T) {
	t.Setenv("WALNUT_CDP_PORT", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.CDPPort != 9222 {
		t.Fatalf("CDPPort = %d, want default 9222", cfg.CDPPort)
	}
}

func TestLoadRejectsBadPollSettings(t *testing.T) {
	t.Setenv("WALNUT_POLL_INTERVAL_MS", "2000")
	t.Setenv("WALNUT_POLL_CEILING_MS", "1000")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when ceiling < interval")
	}
}

func TestCDPURL(t *testing.T) {
	cfg := &Config{CDPAddress: "10.0.0.5", CDPPort: 9222}
	if got := cfg.CDPURL(); got != "http://10.0.0.5:9222" {
		t.Fatalf("CDPURL = %q", got)
	}
}
