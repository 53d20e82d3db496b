package udtnet

import (
	"io/ioutil"
	"log"
	"strings"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"
)

type Global struct {
	LogLevel string `yaml:"log_level" toml:"log_level"`
}

type PollerSection struct {
	Name            string `yaml:"name" toml:"name"`
	EventBufferSize int    `yaml:"event_buffer_size" toml:"event_buffer_size"`
	PollTimeoutMs   int    `yaml:"poll_timeout_ms" toml:"poll_timeout_ms"`
	LockOsThread    bool   `yaml:"lock_os_thread" toml:"lock_os_thread"`
}

type ResolverSection struct {
	CacheEnabled    bool  `yaml:"cache_enabled" toml:"cache_enabled"`
	CacheMaxEntries int64 `yaml:"cache_max_entries" toml:"cache_max_entries"`
	CacheTTLSec     int   `yaml:"cache_ttl_sec" toml:"cache_ttl_sec"`
}

type Config struct {
	Global   Global          `yaml:"global" toml:"global"`
	Poller   PollerSection   `yaml:"poller" toml:"poller"`
	Resolver ResolverSection `yaml:"resolver" toml:"resolver"`
}

func LoadConfig(filePath string) *Config {
	file, err := ioutil.ReadFile(filePath)
	if err != nil {
		log.Fatalf("%+v", err)
	}
	config := &Config{}
	if strings.HasSuffix(filePath, ".toml") {
		err = toml.Unmarshal(file, config)
	} else if strings.HasSuffix(filePath, ".yaml") {
		err = yaml.Unmarshal(file, config)
	}
	if err != nil {
		log.Fatalf("%+v", err)
	}
	validateConfig(config)
	return config
}

func validateConfig(config *Config) {
	if config.Poller.EventBufferSize <= 0 {
		config.Poller.EventBufferSize = defEventsBufferSize
	}
	if config.Poller.PollTimeoutMs <= 0 {
		config.Poller.PollTimeoutMs = defPollTimeoutMs
	}
	if config.Resolver.CacheMaxEntries <= 0 {
		config.Resolver.CacheMaxEntries = 1024
	}
	if config.Resolver.CacheTTLSec <= 0 {
		config.Resolver.CacheTTLSec = 300
	}
}

func (c *Config) PollerConfig() PollerConfig {
	return PollerConfig{
		Name:            c.Poller.Name,
		LockOsThread:    c.Poller.LockOsThread,
		EventBufferSize: c.Poller.EventBufferSize,
		PollTimeoutMs:   c.Poller.PollTimeoutMs,
	}
}

func (c *Config) ResolverConfig() ResolverConfig {
	return ResolverConfig{
		CacheEnabled:    c.Resolver.CacheEnabled,
		CacheMaxEntries: c.Resolver.CacheMaxEntries,
		CacheTTLSec:     c.Resolver.CacheTTLSec,
	}
}
