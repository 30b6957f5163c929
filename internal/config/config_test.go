package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8080 || cfg.PingPeriod != 54*time.Second || cfg.PongWait != 60*time.Second {
		t.Fatalf("cfg = %+v, want default port and keepalive", cfg)
	}
	if cfg.Backpressure != "drop" || cfg.SendBuffer != 32 || cfg.ReadLimit != 32768 {
		t.Fatalf("cfg = %+v, want default relay settings", cfg)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.test.yaml")
	yaml := "mode: debug\nport: 7000\nping_period: 10s\npong_wait: 15s\nbackpressure: drop\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9090")
	t.Setenv("VCALLS_BACKPRESSURE", "kick")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != "debug" {
		t.Fatalf("Mode = %q, want debug", cfg.Mode)
	}
	if cfg.Port != 9090 {
		t.Fatalf("Port = %d, want 9090 from PORT", cfg.Port)
	}
	if cfg.PingPeriod != 10*time.Second || cfg.PongWait != 15*time.Second {
		t.Fatalf("keepalive = %s/%s, want 10s/15s", cfg.PingPeriod, cfg.PongWait)
	}
	if cfg.Backpressure != "kick" {
		t.Fatalf("Backpressure = %q, want kick from env", cfg.Backpressure)
	}
}

func TestLoadRejectsBadKeepalive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("ping_period: 30s\npong_wait: 10s\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "pong_wait") {
		t.Fatalf("Load() error = %v, want pong_wait complaint", err)
	}
}

func peerFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("vcall", pflag.ContinueOnError)
	fs.String("relay", "", "")
	fs.String("share-base", "", "")
	fs.StringSlice("ice", nil, "")
	fs.Int("buffer-limit", 0, "")
	fs.String("audio", "", "")
	fs.String("record", "", "")
	fs.String("log-level", "", "")
	fs.String("config", "", "")
	return fs
}

func TestLoadPeerDefaults(t *testing.T) {
	cfg, err := LoadPeer(nil)
	if err != nil {
		t.Fatalf("LoadPeer: %v", err)
	}
	if cfg.RelayURL != "ws://localhost:8080/ws" {
		t.Fatalf("RelayURL = %q", cfg.RelayURL)
	}
	if !slices.Equal(cfg.ICEServers, []string{DefaultSTUN}) {
		t.Fatalf("ICEServers = %v, want [%s]", cfg.ICEServers, DefaultSTUN)
	}
	if cfg.CandidateBufferLimit != 64 {
		t.Fatalf("CandidateBufferLimit = %d, want 64", cfg.CandidateBufferLimit)
	}
}

func TestLoadPeerFlagsBeatEnv(t *testing.T) {
	t.Setenv("VCALLS_RELAY_URL", "ws://env:1/ws")
	t.Setenv("VCALLS_CANDIDATE_BUFFER_LIMIT", "16")

	fs := peerFlagSet()
	if err := fs.Parse([]string{"--relay", "ws://flag:2/ws", "--ice", "stun:a:1,stun:b:2", "--record", "out.ogg"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cfg, err := LoadPeer(fs)
	if err != nil {
		t.Fatalf("LoadPeer: %v", err)
	}
	if cfg.RelayURL != "ws://flag:2/ws" {
		t.Fatalf("RelayURL = %q, want the flag value", cfg.RelayURL)
	}
	if cfg.CandidateBufferLimit != 16 {
		t.Fatalf("CandidateBufferLimit = %d, want 16 from env", cfg.CandidateBufferLimit)
	}
	if !slices.Equal(cfg.ICEServers, []string{"stun:a:1", "stun:b:2"}) {
		t.Fatalf("ICEServers = %v", cfg.ICEServers)
	}
	if cfg.Record != "out.ogg" {
		t.Fatalf("Record = %q, want out.ogg", cfg.Record)
	}
}

func TestLoadPeerConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "peer.yaml")
	if err := os.WriteFile(path, []byte("share_base: https://calls.example/\naudio_file: hold.ogg\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	fs := peerFlagSet()
	if err := fs.Parse([]string{"--config", path}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cfg, err := LoadPeer(fs)
	if err != nil {
		t.Fatalf("LoadPeer: %v", err)
	}
	if cfg.ShareBase != "https://calls.example/" || cfg.AudioFile != "hold.ogg" {
		t.Fatalf("cfg = %+v, want values from the file", cfg)
	}
}
