package config

import (
	_ "embed"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed plans.yaml
var plansYAML []byte

type Config struct {
	Database  DatabaseConfig
	Embedding EmbeddingConfig
	Gate      GateConfig
	Roster    RosterConfig
	Plans     PlansConfig
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type EmbeddingConfig struct {
	URL string // face embedding service, defaults to http://localhost:8000
	Dim int    // descriptor length, defaults to 128
}

// GateConfig holds the decision-engine tunables. The acceptance threshold
// trades false accepts against false rejects and must stay configurable;
// 0.45 is the empirical default for the face descriptor space.
type GateConfig struct {
	Threshold   float64       // max Euclidean distance for a face match
	Cooldown    time.Duration // minimum gap between two events for one member
	QuietWindow time.Duration // lock held after a decision so the person can step away
	Tick        time.Duration // capture loop sampling interval
	TokenMaxAge time.Duration // QR credential payloads older than this are rejected
}

type RosterConfig struct {
	RefreshInterval time.Duration // periodic roster reload at the terminal
}

// PlansConfig is the static subscription catalog shown by the landing API.
type PlansConfig struct {
	Plans []Plan `yaml:"plans"`
}

type Plan struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	PriceCents  int    `yaml:"price_cents"`
	Interval    string `yaml:"interval"`
	Description string `yaml:"description"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envDuration reads an environment variable as a Go duration ("90s", "5m").
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func Load() *Config {
	var plans PlansConfig
	if err := yaml.Unmarshal(plansYAML, &plans); err != nil {
		// Embedded file, so this can only happen if the file is broken at build time.
		panic("failed to unmarshal embedded plans.yaml: " + err.Error())
	}

	return &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Embedding: EmbeddingConfig{
			URL: os.Getenv("EMBEDDING_URL"),
			Dim: envInt("EMBEDDING_DIM", 128),
		},
		Gate: GateConfig{
			Threshold:   envFloat("GATE_THRESHOLD", 0.45),
			Cooldown:    envDuration("GATE_COOLDOWN", 5*time.Minute),
			QuietWindow: envDuration("GATE_QUIET_WINDOW", 3*time.Second),
			Tick:        envDuration("GATE_TICK", 800*time.Millisecond),
			TokenMaxAge: envDuration("GATE_TOKEN_MAX_AGE", 2*time.Minute),
		},
		Roster: RosterConfig{
			RefreshInterval: envDuration("ROSTER_REFRESH_INTERVAL", time.Minute),
		},
		Plans: plans,
	}
}

// FindPlan returns the plan with the given id, or nil.
func (c *Config) FindPlan(id string) *Plan {
	for i := range c.Plans.Plans {
		if c.Plans.Plans[i].ID == id {
			return &c.Plans.Plans[i]
		}
	}
	return nil
}
