package observability

import (
	"strings"

	"github.com/smallbiznis/millrun/internal/config"
)

// Config is the slice of application config the logger, tracer and
// meter providers read.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

func LoadConfig(cfg config.Config) Config {
	name := strings.TrimSpace(cfg.AppName)
	if name == "" {
		name = "millrun"
	}
	t := cfg.Telemetry
	return Config{
		ServiceName:          name,
		Environment:          strings.TrimSpace(cfg.Environment),
		Version:              strings.TrimSpace(cfg.AppVersion),
		LogLevel:             t.LogLevel,
		LogFormat:            t.LogFormat,
		OtelEnabled:          t.OtelEnabled,
		OtelExporterEndpoint: t.OtlpEndpoint,
		OtelExporterProtocol: t.OtlpProtocol,
		OtelSamplingRatio:    t.SamplingRatio,
	}
}

// Debug turns on verbose request logging for debug level or a dev
// environment.
func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch strings.ToLower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}
