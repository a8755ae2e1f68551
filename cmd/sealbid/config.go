package main

import (
	"os"

	"go.dedis.ch/sealbid/contracts/auction"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

// config is the content of the configuration file.
//
//	duration: 168h
//	maxcomment: 280
//	contract: sealbid
//	redis:
//	  addr: 127.0.0.1:6379
//	  stream: sealbid:events
type config struct {
	Ledger auction.Config `yaml:",inline"`
	Redis  redisConfig    `yaml:"redis"`
}

type redisConfig struct {
	Addr   string `yaml:"addr"`
	Stream string `yaml:"stream"`
	MaxLen int64  `yaml:"maxlen"`
}

// loadConfig returns the default configuration overwritten by the content of
// the file, if any.
func loadConfig(path string) (config, error) {
	cfg := config{
		Ledger: auction.DefaultConfig(),
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, xerrors.Errorf("failed to read config file: %v", err)
	}

	err = yaml.UnmarshalStrict(data, &cfg)
	if err != nil {
		return cfg, xerrors.Errorf("failed to unmarshal config: %v", err)
	}

	return cfg, nil
}
