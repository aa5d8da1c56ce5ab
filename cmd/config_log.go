package cmd

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

const redacted = "<redacted>"

// logConfig prints the effective config at debug level with secrets masked.
func logConfig(log *zap.Logger, config *Config) {
	if config == nil {
		return
	}

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config.redacted(), "", "  ")
	log.Debug(fmt.Sprintf("starting with config: \n %s", pretty))
}

func (c *Config) redacted() *Config {
	out := *c

	if c.Storage != nil {
		storage := *c.Storage
		if storage.Postgres != nil && storage.Postgres.DSN != "" {
			pg := *storage.Postgres
			pg.DSN = redacted
			storage.Postgres = &pg
		}
		if storage.Remote != nil && storage.Remote.Token != "" {
			rm := *storage.Remote
			rm.Token = redacted
			storage.Remote = &rm
		}
		out.Storage = &storage
	}

	if c.AI != nil {
		aiCfg := *c.AI
		if aiCfg.Gemini != nil && aiCfg.Gemini.APIKey != "" {
			g := *aiCfg.Gemini
			g.APIKey = redacted
			aiCfg.Gemini = &g
		}
		if aiCfg.Cache != nil && aiCfg.Cache.RedisPassword != "" {
			cc := *aiCfg.Cache
			cc.RedisPassword = redacted
			aiCfg.Cache = &cc
		}
		out.AI = &aiCfg
	}

	return &out
}
