package main

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/hyperware-ai/hypergrid-operator/internal/chainenv"
	"github.com/hyperware-ai/hypergrid-operator/internal/config"
)

// loadRuntimeConfig reads the layered config and builds the logger and
// environment constants every subcommand needs before it can touch the
// store, the chain, or custody. Each subcommand's own init function calls
// this once, mirroring the per-module lazy-init pattern the rest of this
// runtime follows.
func loadRuntimeConfig() (*config.Config, chainenv.Constants, *logrus.Logger, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, chainenv.Constants{}, nil, fmt.Errorf("load config: %w", err)
	}

	logger := logrus.StandardLogger()
	if lv, lvErr := logrus.ParseLevel(cfg.Logging.Level); lvErr == nil {
		logger.SetLevel(lv)
	}

	env, err := chainenv.For(chainenv.Name(cfg.Environment))
	if err != nil {
		return nil, chainenv.Constants{}, nil, fmt.Errorf("resolve environment %q: %w", cfg.Environment, err)
	}

	return cfg, env, logger, nil
}
