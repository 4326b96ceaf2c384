package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/eventgen/pkg/generator/support/util/exception"
	"github.com/tigerroll/eventgen/pkg/generator/support/util/logger"
)

const (
	moduleName = "config"
	envPrefix  = ""
)

// ConfigParams defines the dependencies for NewConfigProvider.
type ConfigParams struct {
	fx.In
	EmbeddedConfig EmbeddedConfig
	EnvFilePath    string `name:"envFilePath" optional:"true"`
}

// LoadConfig builds a Config from defaults, the YAML document (with ${VAR}
// placeholders expanded) and environment variable overrides. The .env file at
// envFilePath, or ./.env when empty, is loaded first if present.
func LoadConfig(envFilePath string, data EmbeddedConfig) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else if err := godotenv.Load(); err != nil {
		logger.Debugf(".env file not found or could not be loaded: %v", err)
	}

	cfg := NewConfig()
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, exception.NewValidationError(moduleName, "failed to unmarshal config", err)
	}

	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), envPrefix); err != nil {
		return nil, exception.NewValidationError(moduleName, "failed to load config from environment variables", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFile reads path and calls LoadConfig.
func LoadConfigFile(envFilePath, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, exception.NewValidationError(moduleName, fmt.Sprintf("failed to read config file %s", path), err)
	}
	return LoadConfig(envFilePath, data)
}

// NewConfigProvider is an fx provider that loads *Config and applies the logging settings.
func NewConfigProvider(params ConfigParams) (*Config, error) {
	cfg, err := LoadConfig(params.EnvFilePath, params.EmbeddedConfig)
	if err != nil {
		return nil, err
	}
	logger.SetLogLevel(cfg.EventGen.System.Logging.Level)
	logger.SetFormat(cfg.EventGen.System.Logging.Format)
	logger.Debugf("Log level set to: %s", cfg.EventGen.System.Logging.Level)
	return cfg, nil
}

// Validate checks values that would make the generator misbehave.
func (c *Config) Validate() error {
	g := c.EventGen.Generator
	if g.BatchCeiling <= 0 {
		return exception.NewValidationError(moduleName, fmt.Sprintf("generator.batch_ceiling must be positive, got %d", g.BatchCeiling), nil)
	}
	if g.RequeueDelaySeconds < 0 {
		return exception.NewValidationError(moduleName, fmt.Sprintf("generator.requeue_delay_seconds must not be negative, got %d", g.RequeueDelaySeconds), nil)
	}
	switch c.EventGen.Scheduler.Type {
	case SchedulerLocal, SchedulerTimer, SchedulerRedis, SchedulerAuto:
	default:
		return exception.NewValidationError(moduleName, fmt.Sprintf("unknown scheduler type %q", c.EventGen.Scheduler.Type), nil)
	}
	return nil
}

// loadStructFromEnv walks val and overrides fields from environment variables named
// after their yaml tags, e.g. EVENTGEN_GENERATOR_BATCH_CEILING.
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := strings.Split(fieldType.Tag.Get("yaml"), ",")[0]
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		switch {
		case field.Kind() == reflect.Struct:
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
		case field.Kind() == reflect.Map && field.Type().Key().Kind() == reflect.String && field.Type().Elem().Kind() == reflect.Interface:
			loadRawMapFromEnv(field, envVarName+"_")
		default:
			envValue, exists := os.LookupEnv(envVarName)
			if !exists {
				continue
			}
			if err := setField(field, envValue); err != nil {
				return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
			}
		}
	}
	return nil
}

// loadRawMapFromEnv handles the named connection maps. EVENTGEN_DATABASE_CONTENT_HOST=db
// sets Database["content"]["host"] = "db". Values stay strings; the adapters decode
// them with weak typing.
func loadRawMapFromEnv(mapField reflect.Value, prefix string) {
	if mapField.IsNil() {
		mapField.Set(reflect.MakeMap(mapField.Type()))
	}
	raw := mapField.Interface().(map[string]interface{})

	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, prefix) {
			continue
		}
		parts := strings.SplitN(strings.TrimPrefix(env, prefix), "=", 2)
		if len(parts) != 2 {
			continue
		}
		keyAndField := strings.SplitN(parts[0], "_", 2)
		if len(keyAndField) != 2 {
			continue
		}
		name := strings.ToLower(keyAndField[0])
		fieldName := strings.ToLower(keyAndField[1])

		entry, ok := raw[name].(map[string]interface{})
		if !ok {
			entry = make(map[string]interface{})
			raw[name] = entry
		}
		entry[fieldName] = parts[1]
	}
}

func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Float64, reflect.Float32:
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	}
	return nil
}
