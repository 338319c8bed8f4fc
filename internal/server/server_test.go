package server

import (
	"net/http/httptest"
	"testing"

	"github.com/congo-pay/timelock_escrow/internal/config"
	"github.com/congo-pay/timelock_escrow/internal/logging"
)

func TestNewDevelopmentServerServesHealth(t *testing.T) {
	cfg := config.Config{
		AppName:   "test",
		AppEnv:    "development",
		Port:      "0",
		ProgramID: "FFuyrsPLstdzs8Q3ywzsy1X7j57ZBZCa3sQGSqv9SLKA",
	}
	srv, err := New(cfg, nil, nil, logging.Discard())
	if err != nil {
		t.Fatalf("new server: %v", err)
	}

	resp, err := srv.App().Test(httptest.NewRequest("GET", "/healthz", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200 got %d", resp.StatusCode)
	}
}

func TestNewRequiresBackendsOutsideDevelopment(t *testing.T) {
	cfg := config.Config{AppEnv: "production", ProgramID: "FFuyrsPLstdzs8Q3ywzsy1X7j57ZBZCa3sQGSqv9SLKA"}
	if _, err := New(cfg, nil, nil, logging.Discard()); err == nil {
		t.Fatal("expected missing backends to fail")
	}
}
