package config

import (
	"strings"
	"testing"
	"time"
)

func validServer() Server {
	return Server{
		Env:            "dev",
		Port:           "8080",
		DatabaseURL:    "postgres://localhost/ledger",
		JWTSecret:      "secret",
		JWTTTL:         time.Hour,
		OTPTTL:         5 * time.Minute,
		OTPMaxAttempts: 5,
		OTPDevCode:     "000000",
		OTPSender:      "log",
	}
}

func TestServer_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Server)
		wantErr     bool
		errorString string
	}{
		{name: "valid dev config", mutate: func(*Server) {}},
		{
			name:        "invalid port - non-numeric",
			mutate:      func(c *Server) { c.Port = "abc" },
			wantErr:     true,
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name:        "invalid port - out of range",
			mutate:      func(c *Server) { c.Port = "70000" },
			wantErr:     true,
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name:        "missing database url",
			mutate:      func(c *Server) { c.DatabaseURL = "" },
			wantErr:     true,
			errorString: "DATABASE_URL is not set",
		},
		{
			name:        "missing jwt secret",
			mutate:      func(c *Server) { c.JWTSecret = "" },
			wantErr:     true,
			errorString: "JWT_SECRET is not set",
		},
		{
			name:        "dev code in production",
			mutate:      func(c *Server) { c.Env = "production"; c.OTPSender = "arkesel"; c.ArkeselAPIKey = "k" },
			wantErr:     true,
			errorString: "OTP_DEV_CODE is only allowed with ENV=dev",
		},
		{
			name:        "dev code outside dev",
			mutate:      func(c *Server) { c.Env = "staging" },
			wantErr:     true,
			errorString: "OTP_DEV_CODE is only allowed with ENV=dev",
		},
		{
			name:        "log sender in production",
			mutate:      func(c *Server) { c.Env = "production"; c.OTPDevCode = "" },
			wantErr:     true,
			errorString: "OTP sender 'log' is not allowed in production",
		},
		{
			name:        "twilio without credentials",
			mutate:      func(c *Server) { c.OTPSender = "twilio" },
			wantErr:     true,
			errorString: "required for the twilio sender",
		},
		{
			name:        "unknown sender",
			mutate:      func(c *Server) { c.OTPSender = "pigeon" },
			wantErr:     true,
			errorString: "invalid OTP sender 'pigeon'",
		},
		{
			name:        "short dev code",
			mutate:      func(c *Server) { c.OTPDevCode = "123" },
			wantErr:     true,
			errorString: "must be 6 digits",
		},
		{
			name:        "invalid AMQP URL scheme",
			mutate:      func(c *Server) { c.AMQPURL = "http://localhost:5672/"; c.AMQPExchange = "x"; c.AMQPQueue = "q" },
			wantErr:     true,
			errorString: "invalid AMQP URL scheme 'http': must be 'amqp' or 'amqps'",
		},
		{
			name:        "AMQP URL without queue",
			mutate:      func(c *Server) { c.AMQPURL = "amqp://localhost:5672/"; c.AMQPExchange = "x" },
			wantErr:     true,
			errorString: "AMQP exchange and queue names cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validServer()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Validate() error = nil, wantErr %v", tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.errorString) {
					t.Errorf("Validate() error = %v, want error containing %v", err, tt.errorString)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}

func TestLoadServer(t *testing.T) {
	t.Run("unset env is production without a dev code", func(t *testing.T) {
		t.Setenv("ENV", "")
		t.Setenv("PORT", "")
		t.Setenv("OTP_DEV_CODE", "")
		t.Setenv("JWT_TTL", "")

		cfg := LoadServer()
		if cfg.Env != "production" || cfg.Port != "8080" {
			t.Errorf("LoadServer() env/port = %s/%s, want production/8080", cfg.Env, cfg.Port)
		}
		if cfg.OTPDevCode != "" {
			t.Errorf("LoadServer() OTPDevCode = %q, want empty", cfg.OTPDevCode)
		}
		if cfg.JWTTTL != 30*24*time.Hour {
			t.Errorf("LoadServer() JWTTTL = %v", cfg.JWTTTL)
		}
	})

	t.Run("dev code only when set", func(t *testing.T) {
		t.Setenv("ENV", "dev")
		t.Setenv("OTP_DEV_CODE", "")
		if cfg := LoadServer(); cfg.OTPDevCode != "" {
			t.Errorf("dev without OTP_DEV_CODE: OTPDevCode = %q", cfg.OTPDevCode)
		}

		t.Setenv("OTP_DEV_CODE", "123123")
		cfg := LoadServer()
		if cfg.OTPDevCode != "123123" {
			t.Errorf("dev with OTP_DEV_CODE: OTPDevCode = %q", cfg.OTPDevCode)
		}
		if err := cfg.Validate(); err != nil && strings.Contains(err.Error(), "OTP_DEV_CODE") {
			t.Errorf("dev code rejected in dev: %v", err)
		}
	})

	t.Run("production has no dev code", func(t *testing.T) {
		t.Setenv("ENV", "production")
		t.Setenv("OTP_DEV_CODE", "")

		cfg := LoadServer()
		if cfg.OTPDevCode != "" {
			t.Errorf("LoadServer() OTPDevCode = %q, want empty", cfg.OTPDevCode)
		}
	})

	t.Run("invalid numbers use defaults", func(t *testing.T) {
		t.Setenv("RATE_LIMIT_TX_MAX", "invalid")
		t.Setenv("OTP_TTL", "soon")

		cfg := LoadServer()
		if cfg.RateLimitTxMax != 60 {
			t.Errorf("RateLimitTxMax = %d, want 60", cfg.RateLimitTxMax)
		}
		if cfg.OTPTTL != 5*time.Minute {
			t.Errorf("OTPTTL = %v, want 5m", cfg.OTPTTL)
		}
	})
}

func TestClient(t *testing.T) {
	t.Setenv("LEDGER_API_URL", "https://ledger.example.com/")
	t.Setenv("LEDGER_STATE_PATH", "/tmp/ledger-state.db")
	t.Setenv("LEDGER_INSIGHT_MODE", "")

	cfg := LoadClient()
	if cfg.APIBaseURL != "https://ledger.example.com" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.InsightMode != "remote" || cfg.InsightDelay != 2500*time.Millisecond {
		t.Errorf("insight = %s/%v", cfg.InsightMode, cfg.InsightDelay)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}

	cfg.APIBaseURL = "ftp://ledger"
	cfg.InsightMode = "magic"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "scheme 'ftp'") || !strings.Contains(err.Error(), "insight mode 'magic'") {
		t.Fatalf("Validate() = %v", err)
	}
}
