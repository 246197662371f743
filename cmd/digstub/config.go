package main

import (
	"os"

	"gopkg.in/yaml.v3"
)

// ConfigFile supplies defaults the command line can override: nameserver,
// EDNS bufsize, and outbound rate-limit parameters.
type ConfigFile struct {
	Nameserver string  `yaml:"nameserver"`
	Bufsize    int     `yaml:"bufsize"`
	RateLimit  float64 `yaml:"rate_limit"`
	RateBurst  int     `yaml:"rate_burst"`
}

func LoadConfig(path string) (*ConfigFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c ConfigFile
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
