package main

import (
	"strings"

	"kaitiaki/internal/config"
	"kaitiaki/internal/queue"
)

// commandContext shares lazily loaded configuration between subcommands.
type commandContext struct {
	configFlag *string
	addrFlag   *string
	tokenFlag  *string

	cfg  *config.Config
	path string
}

func newCommandContext(configFlag, addrFlag, tokenFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		addrFlag:   addrFlag,
		tokenFlag:  tokenFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, path, err := config.Load(strings.TrimSpace(*c.configFlag))
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	c.path = path
	return cfg, nil
}

// client builds an API client from flags and config. Flags win.
func (c *commandContext) client() (*apiClient, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	addr := strings.TrimSpace(*c.addrFlag)
	if addr == "" {
		addr = cfg.APIBind
	}
	token := strings.TrimSpace(*c.tokenFlag)
	if token == "" {
		token = cfg.APIToken
	}
	return newAPIClient(addr, token), nil
}

// openStore opens the queue database directly for commands that operate on
// it without a running daemon.
func (c *commandContext) openStore() (*queue.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return queue.Open(cfg)
}
