// Package config handles input from etc/*.toml files
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// EnvConfigJSON is the environment variable holding a JSON document merged over main.toml.
const EnvConfigJSON = "TENANTADMIN_CONFIG_JSON"

const (
	defaultCentralSlug  = "central"
	defaultCentralName  = "Central"
	defaultTokenTTL     = 24 * time.Hour
	defaultCacheTTL     = 30 * time.Second
	defaultCacheSize    = 4096
	defaultShutDownTime = 5
	defaultSessionTTL   = 12 * time.Hour
)

// ReadConfig from config file.
func ReadConfig(path string) (Config, error) {
	var (
		c             Config
		JSONConfigEnv string
		err           error
	)

	// Read main configuration
	if path == "" {
		path = "./etc/"
	}

	if _, err = toml.DecodeFile(path+"main.toml", &c); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	// override it from env
	JSONConfigEnv = os.Getenv(EnvConfigJSON)

	if JSONConfigEnv != "" {
		c, err = decodeAndMergeConfig(c, JSONConfigEnv)
		if err != nil {
			return c, err
		}
	}

	return c, validate(&c)
}

func decodeAndMergeConfig(c Config, configAsJSON string) (Config, error) {
	err := json.Unmarshal([]byte(configAsJSON), &c)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to decode json config override")
	}

	return c, nil
}

// DumpConfig config as TOML String.
func DumpConfig(c *Config) (string, error) {
	var buffer bytes.Buffer
	t := toml.NewEncoder(&buffer)

	if err := t.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// DumpConfigJSON config as JSON String.
func DumpConfigJSON(c *Config) (string, error) {
	var buffer bytes.Buffer
	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	if err := j.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// validate checks the settings the daemon can not start without and fills in defaults.
func validate(c *Config) error {
	invalidErrMessage := "invalid config"

	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = defaultShutDownTime
	}

	if c.Webserver.Session.ExpiryTime == 0 {
		c.Webserver.Session.ExpiryTime = defaultSessionTTL
	}

	c.DB.Driver = strings.ToLower(strings.TrimSpace(c.DB.Driver))
	switch c.DB.Driver {
	case "":
		c.DB.Driver = "sqlite"
	case "sqlite", "mysql", "postgres":
	default:
		return errors.Wrap(ErrUnsupportedDBDriver, invalidErrMessage)
	}

	switch c.Notify.Provider {
	case "":
		c.Notify.Provider = "log"
	case "log", "noop":
	default:
		return errors.Wrap(ErrUnsupportedNotifyProvider, invalidErrMessage)
	}

	if c.Tenancy.CentralSlug == "" {
		c.Tenancy.CentralSlug = defaultCentralSlug
	}

	if c.Tenancy.CentralName == "" {
		c.Tenancy.CentralName = defaultCentralName
	}

	if len(c.Tenancy.CentralHosts) == 0 {
		c.Tenancy.CentralHosts = []string{"localhost", "127.0.0.1"}
	}

	if c.Token.TTL == 0 {
		c.Token.TTL = defaultTokenTTL
	}

	if c.RBAC.CacheTTL < 0 {
		c.RBAC.CacheTTL = 0
	}

	if c.RBAC.CacheSize == 0 {
		c.RBAC.CacheSize = defaultCacheSize
	}

	return nil
}

// Defaults returns a config that passes validation, used by commands and tests that
// do not read etc/main.toml.
func Defaults() Config {
	c := Config{
		Title: "TenantAdmin",
		Webserver: Webserver{
			Port: 8080,
			URL:  "http://localhost:8080",
		},
		RBAC: RBAC{CacheTTL: defaultCacheTTL},
	}

	_ = validate(&c)

	return c
}
