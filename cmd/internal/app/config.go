package app

import (
	"net"
	"net/url"
	"strings"
	"time"

	"carapi/cmd/internal/dbsession"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32
	// DBTimeZone is the fixed offset applied to every request session.
	DBTimeZone  string
	AutoMigrate bool

	// JWTKeyEnv names the env var holding the signing secret.
	JWTKeyEnv   string
	TokenIssuer string
	TokenTTL    time.Duration
	TokenLeeway time.Duration
	// RequireStrongSecret rejects secrets shorter than 32 bytes at startup.
	RequireStrongSecret bool

	// ProtectCars puts the car routes behind the bearer gate.
	ProtectCars  bool
	MaxBodyBytes int64

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	CORSMaxAgeSeconds    int
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  httpAddr(),
		LogLevel:  EnvString("CARAPI_LOG_LEVEL", "info"),
		LogFormat: EnvString("CARAPI_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("CARAPI_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("CARAPI_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("CARAPI_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("CARAPI_HTTP_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:   EnvDuration("CARAPI_SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxHeaderBytes:    EnvInt("CARAPI_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: databaseURL(),
		DBMaxConns:  EnvInt32("CARAPI_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("CARAPI_DB_MIN_CONNS", 0),
		DBTimeZone:  EnvString("CARAPI_DB_TIMEZONE", dbsession.DefaultTimeZone),
		AutoMigrate: EnvBool("CARAPI_AUTO_MIGRATE", false),

		JWTKeyEnv:           "JWT_KEY",
		TokenIssuer:         EnvString("CARAPI_TOKEN_ISSUER", "carapi"),
		TokenTTL:            EnvDurationAllowZero("CARAPI_TOKEN_TTL", 24*time.Hour),
		TokenLeeway:         EnvDurationAllowZero("CARAPI_TOKEN_LEEWAY", 30*time.Second),
		RequireStrongSecret: EnvBool("CARAPI_REQUIRE_STRONG_SECRET", false),

		ProtectCars:  EnvBool("CARAPI_PROTECT_CARS", false),
		MaxBodyBytes: int64(EnvInt("CARAPI_MAX_BODY_BYTES", 1<<20)),

		CORSAllowedOrigins:   EnvList("CARAPI_CORS_ORIGINS", []string{"*"}),
		CORSAllowCredentials: EnvBool("CARAPI_CORS_ALLOW_CREDENTIALS", false),
		CORSMaxAgeSeconds:    EnvInt("CARAPI_CORS_MAX_AGE", 600),
	}
}

// httpAddr prefers an explicit bind address, then PORT on all interfaces.
func httpAddr() string {
	if v := EnvString("CARAPI_HTTP_ADDR", ""); v != "" {
		return v
	}
	return net.JoinHostPort("0.0.0.0", EnvString("PORT", "8080"))
}

// databaseURL returns DATABASE_URL, or assembles one from the DB_* variables.
func databaseURL() string {
	if v := EnvString("DATABASE_URL", ""); v != "" {
		return v
	}
	return buildDatabaseURL(
		EnvString("DB_HOST", "localhost"),
		EnvString("DB_PORT", "5432"),
		EnvString("DB_USER", "postgres"),
		EnvString("DB_PASSWORD", ""),
		EnvString("DB_NAME", "postgres"),
		EnvString("DB_SSLMODE", "disable"),
	)
}

func buildDatabaseURL(host, port, user, password, name, sslmode string) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(host, port),
		Path:   "/" + strings.TrimPrefix(name, "/"),
	}
	if password != "" {
		u.User = url.UserPassword(user, password)
	} else if user != "" {
		u.User = url.User(user)
	}
	if sslmode != "" {
		u.RawQuery = url.Values{"sslmode": []string{sslmode}}.Encode()
	}
	return u.String()
}
