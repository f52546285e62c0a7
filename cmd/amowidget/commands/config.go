package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"amowidget/internal/amocrm"
	"amowidget/internal/components/telemetry"
	"amowidget/lib/configutil"
)

type Config struct {
	Subdomain     string           `json:"subdomain"`
	BaseUrl       string           `json:"base_url"`
	Login         string           `json:"login"`
	Password      string           `json:"password"`
	RedirectUri   string           `json:"redirect_uri"`
	DefaultLocale string           `json:"default_locale"`
	Marketplace   bool             `json:"marketplace"`
	Telemetry     telemetry.Config `json:"telemetry"`
}

// applyEnv overrides the config with the environment variables the deploy
// scripts already export.
func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("AMO_SUBDOMAIN"); ok && v != "" {
		c.Subdomain = v
	}
	if v, ok := lookup("AMO_LOGIN"); ok && v != "" {
		c.Login = v
	}
	if v, ok := lookup("AMO_PASSWORD"); ok && v != "" {
		c.Password = v
	}
	if v, ok := lookup("APP_URL"); ok && v != "" {
		c.RedirectUri = strings.TrimRight(v, "/") + "/amocrm/auth"
	}
}

func (c Config) accountUrl() (string, error) {
	if c.BaseUrl != "" {
		return c.BaseUrl, nil
	}
	if c.Subdomain == "" {
		return "", fmt.Errorf("no account configured, set `subdomain` in the config or AMO_SUBDOMAIN")
	}
	return amocrm.BaseUrlForSubdomain(c.Subdomain), nil
}

func (c Config) credentials() (amocrm.Credentials, error) {
	if c.Login == "" || c.Password == "" {
		return amocrm.Credentials{}, fmt.Errorf("no credentials configured, set `login` and `password` in the config or AMO_LOGIN and AMO_PASSWORD")
	}
	return amocrm.Credentials{Login: c.Login, Password: c.Password}, nil
}

// loadConfig reads an explicitly given config file as is, the default name is
// searched for from the cwd upwards. Neither has to exist.
func loadConfig(path string, explicit bool) (Config, error) {
	read := configutil.ReadRecursively[Config]
	if explicit {
		read = configutil.ReadConfig[Config]
	}
	cfg, err := read(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg.applyEnv(os.LookupEnv)
	return cfg, nil
}
