package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("VAT_PERCENT", "")
	t.Setenv("LAYOUT_TIMEOUT_MS", "")
	t.Setenv("ALTERNATIVES_LIMIT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.VATPercent != 15 {
		t.Fatalf("vat=%v", cfg.VATPercent)
	}
	if cfg.LayoutTimeoutMs != 60000 {
		t.Fatalf("timeout=%d", cfg.LayoutTimeoutMs)
	}
	if cfg.AlternativesLimit != 5 {
		t.Fatalf("limit=%d", cfg.AlternativesLimit)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("VAT_PERCENT", "5")
	t.Setenv("LAYOUT_RATE_LIMIT_RPS", "10")
	t.Setenv("MAX_UPLOAD_MB", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.VATPercent != 5 || cfg.LayoutRateLimitRPS != 10 {
		t.Fatalf("cfg=%+v", cfg)
	}
	if cfg.MaxUploadMB != 16 {
		t.Fatalf("bad int should fall back, got %d", cfg.MaxUploadMB)
	}
}

func TestRequire(t *testing.T) {
	cfg := Config{}
	if err := cfg.Require("LAYOUT_API_TOKEN", " "); err == nil {
		t.Fatal("expected error")
	}
	if err := cfg.Require("LAYOUT_API_TOKEN", "x"); err != nil {
		t.Fatal(err)
	}
}

func TestLoadMailSettings(t *testing.T) {
	t.Setenv("IMAP_SECURE", "off")
	t.Setenv("IMAP_MARK_SEEN", "maybe")
	t.Setenv("MAIL_LISTENER_AUTO_EXPORT", "")
	t.Setenv("IMAP_PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.IMAPSecure || cfg.IMAPMarkSeen || !cfg.MailListenerAutoExport {
		t.Fatalf("secure=%v markSeen=%v autoExport=%v", cfg.IMAPSecure, cfg.IMAPMarkSeen, cfg.MailListenerAutoExport)
	}
	if cfg.IMAPPort != 993 {
		t.Fatalf("port=%d", cfg.IMAPPort)
	}
}
