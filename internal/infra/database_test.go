package infra

import "testing"

func TestPoolConfigDefaults(t *testing.T) {
	cfg, err := poolConfig("postgres://escrow@localhost:5432/escrow?application_name=custom")
	if err != nil {
		t.Fatalf("pool config: %v", err)
	}
	params := cfg.ConnConfig.RuntimeParams
	if params["application_name"] != "custom" {
		t.Fatalf("explicit application_name must win, got %q", params["application_name"])
	}
	if params["lock_timeout"] != lockTimeout {
		t.Fatalf("expected default lock_timeout, got %q", params["lock_timeout"])
	}

	if _, err := poolConfig("postgres://localhost:notaport/escrow"); err == nil {
		t.Fatal("expected malformed url to fail")
	}
}
