package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Engine holds the interaction tunables. Distances are screen pixels.
type Engine struct {
	HistoryLimit     int           `envconfig:"HISTORY_LIMIT" default:"250"`
	SnapRadius       float64       `envconfig:"SNAP_RADIUS" default:"12"`
	DetectMargin     float64       `envconfig:"DETECT_MARGIN" default:"5"`
	MagnetRadius     float64       `envconfig:"MAGNET_RADIUS" default:"10"`
	EdgeSamples      int           `envconfig:"EDGE_SAMPLES" default:"20"`
	CurveSteps       int           `envconfig:"CURVE_STEPS" default:"8"`
	ClickThreshold   float64       `envconfig:"CLICK_THRESHOLD" default:"3"`
	ClickSuppression time.Duration `envconfig:"CLICK_SUPPRESSION" default:"50ms"`
	HandleSize       float64       `envconfig:"HANDLE_SIZE" default:"6"`
	HitTolerance     float64       `envconfig:"HIT_TOLERANCE" default:"4"`
	LassoSpacing     float64       `envconfig:"LASSO_SPACING" default:"8"`
}

type Server struct {
	Port           int     `envconfig:"PORT" default:"8080"`
	JWTSecret      string  `envconfig:"JWT_SECRET" default:"dev-secret-change-in-production"`
	AllowedOrigins string  `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	MessageRate    float64 `envconfig:"MESSAGE_RATE" default:"240"`
	MessageBurst   int     `envconfig:"MESSAGE_BURST" default:"60"`
	LogLevel       string  `envconfig:"LOG_LEVEL" default:"info"`
}

type Config struct {
	Server Server
	Engine Engine
}

// DefaultEngine mirrors the struct tag defaults, for embedders that do not
// read the environment.
func DefaultEngine() Engine {
	return Engine{
		HistoryLimit:     250,
		SnapRadius:       12,
		DetectMargin:     5,
		MagnetRadius:     10,
		EdgeSamples:      20,
		CurveSteps:       8,
		ClickThreshold:   3,
		ClickSuppression: 50 * time.Millisecond,
		HandleSize:       6,
		HitTolerance:     4,
		LassoSpacing:     8,
	}
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg.Server); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}
	engine, err := LoadEngine()
	if err != nil {
		return nil, err
	}
	cfg.Engine = engine
	return &cfg, nil
}

// LoadEngine reads ANNOTATE_* variables.
func LoadEngine() (Engine, error) {
	var cfg Engine
	if err := envconfig.Process("annotate", &cfg); err != nil {
		return Engine{}, fmt.Errorf("engine config: %w", err)
	}
	if cfg.HistoryLimit < 1 {
		return Engine{}, fmt.Errorf("engine config: history limit %d must be positive", cfg.HistoryLimit)
	}
	return cfg, nil
}

// Origins splits AllowedOrigins.
func (s Server) Origins() []string {
	var out []string
	for _, o := range strings.Split(s.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (s Server) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}
