package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Collector.OutputFile != "sent_to_analyst.json" {
		t.Fatalf("collector output = %q", c.Collector.OutputFile)
	}
	if c.Analyst.OutputFile != "sent_to_advisor.json" {
		t.Fatalf("analyst output = %q", c.Analyst.OutputFile)
	}
	if c.Advisor.OutputFile != "advisor_output.txt" {
		t.Fatalf("advisor output = %q", c.Advisor.OutputFile)
	}
	if c.Timeouts.External != 30*time.Second {
		t.Fatalf("external timeout = %v", c.Timeouts.External)
	}
	if c.Collector.Exchange.Symbol != "BTCUSDT" || c.Collector.Exchange.Interval != "4h" || c.Collector.Exchange.Limit != 1500 {
		t.Fatalf("unexpected exchange defaults %+v", c.Collector.Exchange)
	}
	if len(c.Kafka.Brokers) != 1 || c.Kafka.Brokers[0] != "localhost:9092" {
		t.Fatalf("brokers = %v", c.Kafka.Brokers)
	}
	if c.Advisor.Narrative.Model != "asi1-mini" {
		t.Fatalf("model = %q", c.Advisor.Narrative.Model)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
environment: test
log:
  level: debug
analyst:
  address: candles.analyst
  port: 9101
collector:
  exchange:
    limit: 500
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Analyst.Address != "candles.analyst" || c.Analyst.Port != 9101 {
		t.Fatalf("analyst = %+v", c.Analyst.StageConfig)
	}
	if c.Collector.Exchange.Limit != 500 {
		t.Fatalf("limit = %d", c.Collector.Exchange.Limit)
	}
	if c.Log.Level != "debug" {
		t.Fatalf("level = %q", c.Log.Level)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: loud\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("ANALYST_AGENT_ADDRESS", "analyst.in")
	t.Setenv("ADVISOR_AGENT_ADDRESS", "advisor.in")
	t.Setenv("ADVISOR_PORT", "9300")
	t.Setenv("ANALYST_OUTPUT_FILE", "out/summary.json")
	t.Setenv("ASI_API_KEY", "secret")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	c, err := LoadWithEnv("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Analyst.Address != "analyst.in" || c.Advisor.Address != "advisor.in" {
		t.Fatalf("addresses not overridden: %q %q", c.Analyst.Address, c.Advisor.Address)
	}
	if c.Advisor.Port != 9300 {
		t.Fatalf("advisor port = %d", c.Advisor.Port)
	}
	if c.Analyst.OutputFile != "out/summary.json" {
		t.Fatalf("analyst output = %q", c.Analyst.OutputFile)
	}
	if strings.Join(c.Kafka.Brokers, ",") != "k1:9092,k2:9092" {
		t.Fatalf("brokers = %v", c.Kafka.Brokers)
	}
	for _, stage := range []Stage{StageCollector, StageAnalyst, StageAdvisor} {
		if err := c.ValidateFor(stage); err != nil {
			t.Fatalf("validate %s: %v", stage, err)
		}
	}
	if c.PeerAddress(StageCollector) != "analyst.in" || c.PeerAddress(StageAnalyst) != "advisor.in" {
		t.Fatalf("unexpected peers")
	}
	if c.PeerAddress(StageAdvisor) != "" {
		t.Fatalf("advisor has no peer")
	}
}

func TestValidateForMissingPeer(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	tests := []struct {
		stage Stage
		want  string
	}{
		{StageCollector, "ANALYST_AGENT_ADDRESS"},
		{StageAnalyst, "ANALYST_AGENT_ADDRESS"},
		{StageAdvisor, "ADVISOR_AGENT_ADDRESS"},
	}
	for _, tt := range tests {
		err := c.ValidateFor(tt.stage)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Fatalf("%s: expected error mentioning %s, got %v", tt.stage, tt.want, err)
		}
	}

	c.Advisor.Address = "advisor.in"
	if err := c.ValidateFor(StageAdvisor); err == nil || !strings.Contains(err.Error(), "ASI_API_KEY") {
		t.Fatalf("expected missing api key, got %v", err)
	}
}

func TestParseStage(t *testing.T) {
	if s, err := ParseStage("analyst"); err != nil || s != StageAnalyst {
		t.Fatalf("parse analyst: %v %v", s, err)
	}
	if _, err := ParseStage("router"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestExampleConfigLoads(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "config", "config.example.yaml"))
	if err != nil {
		t.Fatalf("load example: %v", err)
	}
	if err := c.ValidateFor(StageCollector); err != nil {
		t.Fatalf("collector: %v", err)
	}
	if err := c.ValidateFor(StageAnalyst); err != nil {
		t.Fatalf("analyst: %v", err)
	}
	if c.PeerAddress(StageAnalyst) != "candlecast.advisor" {
		t.Fatalf("analyst peer = %q", c.PeerAddress(StageAnalyst))
	}
}
