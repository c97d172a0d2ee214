package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/Conceptual-Machines/magda-sequencer/internal/render"
	"github.com/Conceptual-Machines/magda-sequencer/internal/timing"
)

// Config holds the application configuration
type Config struct {
	// Environment
	Environment string
	Port        string

	// Persistence (optional). Empty disables the project routes.
	DatabaseURL string

	// Observability
	SentryDSN string // Sentry DSN for error tracking

	// Auth mode
	// - "none": No auth (self-hosted, local dev)
	// - "gateway": Trust X-User-* headers from the gateway
	AuthMode string

	// Rendering
	StrictTicks     bool    // non-finite ticks fail the build instead of becoming 0
	DefaultBPM      float64 // tempo used when a request carries none
	ChordOctave     int
	VoicingLowMIDI  int
	VoicingHighMIDI int
}

func Load() *Config {
	return &Config{
		Environment:     getEnv("ENVIRONMENT", "development"),
		Port:            getEnv("PORT", "8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		SentryDSN:       getEnv("SENTRY_DSN", ""),
		AuthMode:        getEnv("AUTH_MODE", "none"), // Default to no auth for self-hosted
		StrictTicks:     getEnvBool("STRICT_TICKS", false),
		DefaultBPM:      getEnvFloat("DEFAULT_BPM", timing.DefaultBPM),
		ChordOctave:     getEnvInt("CHORD_OCTAVE", 4),
		VoicingLowMIDI:  getEnvInt("VOICING_LOW_MIDI", 48),
		VoicingHighMIDI: getEnvInt("VOICING_HIGH_MIDI", 72),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(getEnv(key, "")) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvFloat(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil || v <= 0 {
		return defaultValue
	}
	return v
}

// IsGatewayMode returns true if running behind the gateway
func (c *Config) IsGatewayMode() bool {
	return c.AuthMode == "gateway"
}

// HasDatabase reports whether persistence is configured
func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

// RenderOptions maps the rendering settings onto renderer options
func (c *Config) RenderOptions() render.Options {
	return render.Options{
		Octave:   c.ChordOctave,
		LowMIDI:  c.VoicingLowMIDI,
		HighMIDI: c.VoicingHighMIDI,
		Strict:   c.StrictTicks,
	}
}
