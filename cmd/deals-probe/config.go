package main

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is read once from the environment at startup.
type Config struct {
	HubSpot struct {
		AccessToken string `env:"HUBSPOT_ACCESS_TOKEN" env-required:"true" env-description:"private app bearer token"`
		BaseURL     string `env:"HUBSPOT_BASE_URL" env-default:"https://api.hubapi.com"`
	}
	Redis struct {
		URL string `env:"REDIS_URL" env-default:"" env-description:"optional, enables schema cache and usage snapshots"`
	}
	Log struct {
		Level  string `env:"LOG_LEVEL" env-default:"info"`
		Pretty bool   `env:"LOG_PRETTY" env-default:"false"`
	}
	Export struct {
		Mode       string `env:"MODE" env-default:"test" env-description:"test or export"`
		Properties string `env:"DEAL_PROPERTIES" env-default:"" env-description:"comma-separated property names, empty uses the defaults"`
		MaxPages   int    `env:"MAX_PAGES" env-default:"0"`
	}
}

func loadConfig() (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		helpText := "Environment variables error:"
		if help, helpErr := cleanenv.GetDescription(cfg, &helpText); helpErr == nil {
			return nil, &configError{help: help, err: err}
		}
		return nil, err
	}

	// env-required only catches an unset variable; an empty token is just
	// as unusable.
	if cfg.HubSpot.AccessToken == "" {
		return nil, fmt.Errorf("HUBSPOT_ACCESS_TOKEN must not be empty")
	}

	return cfg, nil
}

type configError struct {
	help string
	err  error
}

func (e *configError) Error() string {
	return e.help + "\n" + e.err.Error()
}

func (e *configError) Unwrap() error {
	return e.err
}
