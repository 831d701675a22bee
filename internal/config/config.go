package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/AumkarMali/backendVibeVideo/internal/command"
)

// Engine kinds.
const (
	EngineFFmpeg  = "ffmpeg"
	EngineCommand = "command"
)

type Config struct {
	HTTPAddr         string
	GRPCAddr         string
	StagingDir       string
	WorkDir          string
	MaxUploadBytes   int64
	MaxMergeFiles    int
	Engine           string
	FFmpegBin        string
	PresetFile       string
	EngineCommand    string
	EngineOperations []command.Token
	EngineTimeout    time.Duration
	PostgresDSN      string
	RegistrySize     int
	ConnectorStrict  bool
	LogLevel         string
	LogFormat        string
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:        sanitizeListenAddr(env("GATEWAY_HTTP_BIND", ":8080")),
		GRPCAddr:        sanitizeListenAddr(env("GATEWAY_BIND", "")),
		StagingDir:      env("STAGING_DIR", filepath.Join(os.TempDir(), "vibevideo")),
		WorkDir:         env("WORK_DIR", ""),
		Engine:          strings.ToLower(env("ENGINE", EngineFFmpeg)),
		FFmpegBin:       env("FFMPEG_BIN", "ffmpeg"),
		PresetFile:      env("ENGINE_PRESETS", ""),
		EngineCommand:   env("ENGINE_COMMAND", ""),
		PostgresDSN:     env("POSTGRES_DSN", ""),
		ConnectorStrict: boolEnv("CONNECTOR_STRICT", false),
		LogLevel:        strings.ToLower(env("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(env("LOG_FORMAT", "json")),
	}

	maxUploadMB, err := intEnv("MAX_UPLOAD_MB", 512)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxUploadBytes = maxUploadMB * 1024 * 1024

	maxMergeFiles, err := intEnv("MAX_MERGE_FILES", 20)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxMergeFiles = int(maxMergeFiles)

	registrySize, err := intEnv("REQUEST_REGISTRY_SIZE", 512)
	if err != nil {
		return Config{}, err
	}
	cfg.RegistrySize = int(registrySize)

	if cfg.EngineTimeout, err = durationEnv("ENGINE_TIMEOUT", 15*time.Minute); err != nil {
		return Config{}, err
	}

	if raw := env("ENGINE_OPERATIONS", ""); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			if strings.TrimSpace(name) == "" {
				continue
			}
			t, err := command.Parse(name)
			if err != nil {
				return Config{}, fmt.Errorf("parse ENGINE_OPERATIONS: %w", err)
			}
			cfg.EngineOperations = append(cfg.EngineOperations, t)
		}
	}

	if cfg.WorkDir == "" {
		if wd, err := os.Getwd(); err == nil {
			cfg.WorkDir = wd
		}
	}
	if cfg.StagingDir, err = filepath.Abs(cfg.StagingDir); err != nil {
		return Config{}, fmt.Errorf("resolve staging dir: %w", err)
	}

	return cfg, cfg.Validate()
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.Engine {
	case EngineFFmpeg:
	case EngineCommand:
		if strings.TrimSpace(c.EngineCommand) == "" {
			return fmt.Errorf("ENGINE_COMMAND is required when ENGINE=%s", EngineCommand)
		}
	default:
		return fmt.Errorf("unknown ENGINE %q (want %s or %s)", c.Engine, EngineFFmpeg, EngineCommand)
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("GATEWAY_HTTP_BIND must not be empty")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}
	if c.MaxMergeFiles < 2 {
		return fmt.Errorf("MAX_MERGE_FILES must be at least 2")
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("unknown LOG_FORMAT %q", c.LogFormat)
	}
	return nil
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func boolEnv(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return def
}

func intEnv(key string, def int64) (int64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return parsed, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return parsed, nil
}

// sanitizeListenAddr trims whitespace/comments so malformed env values (e.g. ":50060 :: note") do not break net.Listen.
func sanitizeListenAddr(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return trimmed
	}
	fields := strings.Fields(trimmed)
	if len(fields) > 0 {
		trimmed = fields[0]
	}
	trimmed = strings.Trim(trimmed, "\"'")
	return trimmed
}
