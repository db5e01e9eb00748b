package platform

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	// EnvPrefix namespaces environment variables (SHINOBI_REGION, ...).
	EnvPrefix = "SHINOBI"

	// DefaultConfigFile is read from the working directory when no path is given.
	DefaultConfigFile = "shinobi.platform.yaml"
)

// Config is the platform-wide configuration for a synthesis run.
//
// Keys inside Defaults and Environments are lowercased by viper, so
// component configuration keys are snake_case throughout.
type Config struct {
	// Environment, Region, Account fill in ComponentContext fields the
	// manifest leaves empty.
	Environment string
	Region      string
	Account     string

	// Defaults holds the platform-defaults layer, keyed by component type.
	Defaults map[string]map[string]any

	// Environments holds the environment-overrides layer:
	// environment name → component type → values.
	Environments map[string]map[string]map[string]any

	// Services lists the enabled platform services in application order.
	// Nil means not configured (DefaultServices); empty disables them.
	Services []string
}

// DefaultServices is used when the platform config does not list services.
// Observability runs first so the alarms it adds are tagged too.
var DefaultServices = []string{"observability", "tagging"}

// LoadConfig reads platform configuration from path and SHINOBI_* variables.
//
// An empty path falls back to DefaultConfigFile in the working directory; a
// missing default file is not an error. A missing explicit path is.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("services", DefaultServices)

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !(errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("reading platform config %s: %w", path, err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Environment:  v.GetString("environment"),
		Region:       v.GetString("region"),
		Account:      v.GetString("account"),
		Services:     explicitList(v.GetStringSlice("services")),
		Defaults:     map[string]map[string]any{},
		Environments: map[string]map[string]map[string]any{},
	}

	for typ, raw := range v.GetStringMap("defaults") {
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("platform config: defaults.%s must be a map", typ)
		}
		cfg.Defaults[typ] = m
	}

	for env, raw := range v.GetStringMap("environments") {
		byType, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("platform config: environments.%s must be a map", env)
		}
		cfg.Environments[env] = map[string]map[string]any{}
		for typ, vals := range byType {
			m, ok := vals.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("platform config: environments.%s.%s must be a map", env, typ)
			}
			cfg.Environments[env][typ] = m
		}
	}

	return cfg, nil
}

// PlatformDefaults returns the platform-defaults layer for a component type.
// The returned map must not be mutated.
func (c *Config) PlatformDefaults(componentType string) map[string]any {
	if c == nil || c.Defaults == nil {
		return nil
	}
	return c.Defaults[strings.ToLower(componentType)]
}

// EnvironmentOverrides returns the environment-overrides layer for a
// component type in the named environment.
func (c *Config) EnvironmentOverrides(env, componentType string) map[string]any {
	if c == nil || c.Environments == nil {
		return nil
	}
	byType, ok := c.Environments[strings.ToLower(env)]
	if !ok {
		return nil
	}
	return byType[strings.ToLower(componentType)]
}

// explicitList keeps an explicitly empty list distinct from an unset one.
// The viper default covers the unset case, so nil here means "[]".
func explicitList(names []string) []string {
	if names == nil {
		return []string{}
	}
	return names
}
