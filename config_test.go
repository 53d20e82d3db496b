package udtnet

import "testing"

func TestLoadConfig(t *testing.T) {
	yamlConfig := LoadConfig("./cmd/config.yaml")
	tomlConfig := LoadConfig("./cmd/config.toml")
	for name, config := range map[string]*Config{"yaml": yamlConfig, "toml": tomlConfig} {
		if config.Global.LogLevel != "info" {
			t.Fatalf("%s: unexpected log level: %s", name, config.Global.LogLevel)
		}
		if config.Poller.Name != "MainPoller" {
			t.Fatalf("%s: unexpected poller name: %s", name, config.Poller.Name)
		}
		if config.Poller.PollTimeoutMs != 1000 {
			t.Fatalf("%s: unexpected poll timeout: %d", name, config.Poller.PollTimeoutMs)
		}
		if !config.Resolver.CacheEnabled {
			t.Fatalf("%s: resolver cache must be enabled", name)
		}
	}
}

func TestConfigDefaults(t *testing.T) {
	config := &Config{}
	validateConfig(config)
	if config.Poller.EventBufferSize != defEventsBufferSize {
		t.Fatalf("unexpected default event buffer size: %d", config.Poller.EventBufferSize)
	}
	if config.Poller.PollTimeoutMs != defPollTimeoutMs {
		t.Fatalf("unexpected default poll timeout: %d", config.Poller.PollTimeoutMs)
	}
	if config.Resolver.CacheMaxEntries != 1024 {
		t.Fatalf("unexpected default cache size: %d", config.Resolver.CacheMaxEntries)
	}
}
