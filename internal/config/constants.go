package config

import "time"

// Matchmaking phase timeouts
const (
	// IntroductionTimeout bounds the mutual-consent window after two
	// sessions are introduced.
	IntroductionTimeout = 30 * time.Second

	// FaceRevealResponseWindow bounds how long a face-reveal response is
	// accepted after the request was delivered.
	FaceRevealResponseWindow = 10 * time.Second
)

// Restart-matching notice delays after a failed or ended pairing. The
// asymmetry keeps both sides from re-entering the waiting pool in the same
// tick.
const (
	RetryDelaySelf    = 1 * time.Second
	RetryDelayPartner = 3 * time.Second
)

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Background job intervals
const CleanupJobInterval = 1 * time.Hour
