package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const DefaultSTUN = "stun:stun.l.google.com:19302"

type PeerConfig struct {
	RelayURL             string   `mapstructure:"relay_url"`
	ShareBase            string   `mapstructure:"share_base"`
	ICEServers           []string `mapstructure:"ice_servers"`
	CandidateBufferLimit int      `mapstructure:"candidate_buffer_limit"`
	AudioFile            string   `mapstructure:"audio_file"`
	Record               string   `mapstructure:"record"`
	LogLevel             string   `mapstructure:"log_level"`
}

// PeerFlags maps config keys to the command-line flags that set them.
var PeerFlags = map[string]string{
	"relay_url":              "relay",
	"share_base":             "share-base",
	"ice_servers":            "ice",
	"candidate_buffer_limit": "buffer-limit",
	"audio_file":             "audio",
	"record":                 "record",
	"log_level":              "log-level",
}

func setPeerDefaults(v *viper.Viper) {
	v.SetDefault("relay_url", "ws://localhost:8080/ws")
	v.SetDefault("share_base", "http://localhost:8080/")
	v.SetDefault("ice_servers", []string{DefaultSTUN})
	v.SetDefault("candidate_buffer_limit", 64)
	v.SetDefault("log_level", "warn")
}

// LoadPeer resolves peer settings: flags that were set win, then VCALLS_*
// env, then the optional file named by the "config" flag, then defaults.
func LoadPeer(flags *pflag.FlagSet) (*PeerConfig, error) {
	v := viper.New()
	setPeerDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range PeerFlags {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
		if f := flags.Lookup("config"); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read peer config: %w", err)
			}
		}
	}

	var cfg PeerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse peer config: %w", err)
	}
	if cfg.RelayURL == "" {
		return nil, fmt.Errorf("relay_url is required")
	}
	return &cfg, nil
}
