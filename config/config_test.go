package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validBody = `
ListenAddress = ":9000"
DataDir = "/var/lib/wm"
LogLevel = "debug"

[addresses]
Wrapper = "0x00000000000000000000000000000000000000A0"
ExcessDestination = "0x00000000000000000000000000000000000000E0"
MigrationAdmin = "0x00000000000000000000000000000000000000AD"
`

func TestLoadParsesFile(t *testing.T) {
	path := writeConfig(t, validBody)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":9000" {
		t.Fatalf("listen address: got %q", cfg.ListenAddress)
	}
	if cfg.DataDir != "/var/lib/wm" {
		t.Fatalf("data dir: got %q", cfg.DataDir)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level: got %q", cfg.LogLevel)
	}
	if cfg.Environment != "local" {
		t.Fatalf("environment default: got %q", cfg.Environment)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("validate: %v", err)
	}
	wrapper, err := cfg.WrapperAddress()
	if err != nil {
		t.Fatalf("wrapper address: %v", err)
	}
	if wrapper != common.HexToAddress("0x00000000000000000000000000000000000000A0") {
		t.Fatalf("wrapper address: got %s", wrapper.Hex())
	}
}

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":8545" {
		t.Fatalf("default listen address: got %q", cfg.ListenAddress)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default file not written: %v", err)
	}
	// The default file has no addresses yet, so it must not validate.
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected validation failure for default config")
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, validBody+"\nBogusField = true\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected unknown field rejection")
	}
}

func TestValidateRejectsBadAddresses(t *testing.T) {
	cases := map[string]string{
		"missing": `
[addresses]
ExcessDestination = "0x00000000000000000000000000000000000000E0"
MigrationAdmin = "0x00000000000000000000000000000000000000AD"
`,
		"malformed": `
[addresses]
Wrapper = "not-an-address"
ExcessDestination = "0x00000000000000000000000000000000000000E0"
MigrationAdmin = "0x00000000000000000000000000000000000000AD"
`,
		"zero": `
[addresses]
Wrapper = "0x0000000000000000000000000000000000000000"
ExcessDestination = "0x00000000000000000000000000000000000000E0"
MigrationAdmin = "0x00000000000000000000000000000000000000AD"
`,
	}
	for name, body := range cases {
		path := writeConfig(t, body)
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("%s: load: %v", name, err)
		}
		if err := Validate(cfg); err == nil {
			t.Fatalf("%s: expected validation failure", name)
		}
	}
}

func TestValidateTelemetryEndpoint(t *testing.T) {
	path := writeConfig(t, validBody+`
[telemetry]
Enabled = true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected telemetry endpoint requirement")
	}
	cfg.Telemetry.Endpoint = "collector:4318"
	if err := Validate(cfg); err != nil {
		t.Fatalf("validate with endpoint: %v", err)
	}
}
