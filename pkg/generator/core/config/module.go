package config

import "go.uber.org/fx"

// NewLoggingConfigProvider extracts *LoggingConfig from *Config.
func NewLoggingConfigProvider(cfg *Config) *LoggingConfig {
	return &cfg.EventGen.System.Logging
}

// NewGeneratorConfigProvider extracts *GeneratorConfig from *Config.
func NewGeneratorConfigProvider(cfg *Config) *GeneratorConfig {
	return &cfg.EventGen.Generator
}

// Module provides *Config and its commonly used sub-sections.
var Module = fx.Options(
	fx.Provide(NewConfigProvider),
	fx.Provide(NewLoggingConfigProvider),
	fx.Provide(NewGeneratorConfigProvider),
)
