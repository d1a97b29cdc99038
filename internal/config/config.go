package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotenv reads .env (if present) into the process environment without
// overriding variables that are already set.
func LoadDotenv() {
	_ = godotenv.Load()
}

// Server is the API, migrator and notifier configuration.
type Server struct {
	Env  string
	Port string

	DatabaseURL string

	JWTSecret string
	JWTTTL    time.Duration

	CORSOrigin string

	LogLevel   string
	LogConsole bool

	RateLimitTxMax    int
	RateLimitTxWindow time.Duration

	// OTP
	OTPTTL         time.Duration
	OTPMaxAttempts int
	OTPDevCode     string
	OTPSender      string // log, twilio, arkesel

	TwilioAccountSID   string
	TwilioAuthToken    string
	TwilioWhatsAppFrom string

	ArkeselAPIKey   string
	ArkeselSenderID string

	// AMQP (optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

func LoadServer() *Server {
	env := strings.ToLower(getEnv("ENV", "production"))

	return &Server{
		Env:         env,
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTSecret: strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTTTL:    getEnvDuration("JWT_TTL", 30*24*time.Hour),

		CORSOrigin: getEnv("CORS_ORIGIN", "*"),

		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogConsole: env == "dev",

		RateLimitTxMax:    getEnvInt("RATE_LIMIT_TX_MAX", 60),
		RateLimitTxWindow: time.Duration(getEnvInt("RATE_LIMIT_TX_WINDOW_SECONDS", 60)) * time.Second,

		OTPTTL:         getEnvDuration("OTP_TTL", 5*time.Minute),
		OTPMaxAttempts: getEnvInt("OTP_MAX_ATTEMPTS", 5),
		OTPDevCode:     strings.TrimSpace(os.Getenv("OTP_DEV_CODE")),
		OTPSender:      strings.ToLower(getEnv("OTP_SENDER", "log")),

		TwilioAccountSID:   os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:    os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioWhatsAppFrom: os.Getenv("TWILIO_WHATSAPP_FROM"),

		ArkeselAPIKey:   os.Getenv("ARKESEL_API_KEY"),
		ArkeselSenderID: getEnv("ARKESEL_SENDER_ID", "ArkeTest"),

		AMQPURL:      os.Getenv("AMQP_URL"),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "transaction_recorded"),
	}
}

func (c *Server) IsProduction() bool { return c.Env == "production" }

func (c *Server) IsDev() bool { return c.Env == "dev" }

// Validate validates the configuration and returns an error if invalid
func (c *Server) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is not set")
	}
	if c.JWTSecret == "" {
		errs = append(errs, "JWT_SECRET is not set")
	}
	if c.JWTTTL < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid JWT TTL %v: must be at least 1 minute", c.JWTTTL))
	}

	if c.OTPDevCode != "" && !c.IsDev() {
		errs = append(errs, "OTP_DEV_CODE is only allowed with ENV=dev")
	}
	if c.OTPDevCode != "" && len(c.OTPDevCode) != 6 {
		errs = append(errs, fmt.Sprintf("invalid OTP dev code '%s': must be 6 digits", c.OTPDevCode))
	}
	if c.OTPMaxAttempts < 1 {
		errs = append(errs, fmt.Sprintf("invalid OTP max attempts %d: must be at least 1", c.OTPMaxAttempts))
	}
	if c.OTPTTL < 30*time.Second {
		errs = append(errs, fmt.Sprintf("invalid OTP TTL %v: must be at least 30 seconds", c.OTPTTL))
	}

	switch c.OTPSender {
	case "log":
		if c.IsProduction() {
			errs = append(errs, "OTP sender 'log' is not allowed in production")
		}
	case "twilio":
		if c.TwilioAccountSID == "" || c.TwilioAuthToken == "" || c.TwilioWhatsAppFrom == "" {
			errs = append(errs, "TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_WHATSAPP_FROM are required for the twilio sender")
		}
	case "arkesel":
		if c.ArkeselAPIKey == "" {
			errs = append(errs, "ARKESEL_API_KEY is required for the arkesel sender")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid OTP sender '%s': must be one of [log twilio arkesel]", c.OTPSender))
	}

	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.AMQPExchange == "" || c.AMQPQueue == "" {
			errs = append(errs, "AMQP exchange and queue names cannot be empty when AMQP URL is provided")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// Client is the CLI configuration.
type Client struct {
	APIBaseURL   string
	StatePath    string
	HTTPTimeout  time.Duration
	InsightMode  string // remote, template
	InsightDelay time.Duration
	LogLevel     string
}

func LoadClient() *Client {
	state := os.Getenv("LEDGER_STATE_PATH")
	if state == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		state = filepath.Join(home, ".ledger", "state.db")
	}

	return &Client{
		APIBaseURL:   strings.TrimRight(getEnv("LEDGER_API_URL", "http://127.0.0.1:5000"), "/"),
		StatePath:    state,
		HTTPTimeout:  getEnvDuration("LEDGER_HTTP_TIMEOUT", 0),
		InsightMode:  strings.ToLower(getEnv("LEDGER_INSIGHT_MODE", "remote")),
		InsightDelay: getEnvDuration("LEDGER_INSIGHT_DELAY", 2500*time.Millisecond),
		LogLevel:     getEnv("LOG_LEVEL", "warn"),
	}
}

func (c *Client) Validate() error {
	var errs []string

	if u, err := url.Parse(c.APIBaseURL); err != nil || u.Host == "" {
		errs = append(errs, fmt.Sprintf("invalid API URL '%s'", c.APIBaseURL))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, fmt.Sprintf("invalid API URL scheme '%s': must be 'http' or 'https'", u.Scheme))
	}
	if c.StatePath == "" {
		errs = append(errs, "state path cannot be empty")
	}
	if c.HTTPTimeout < 0 {
		errs = append(errs, fmt.Sprintf("invalid HTTP timeout %v: must not be negative", c.HTTPTimeout))
	}
	if c.InsightMode != "remote" && c.InsightMode != "template" {
		errs = append(errs, fmt.Sprintf("invalid insight mode '%s': must be one of [remote template]", c.InsightMode))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if i, err := strconv.Atoi(value); err == nil && i > 0 {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
