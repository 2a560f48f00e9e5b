package badger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ternarybob/scrutor/internal/common"
)

const tomlDefinition = `
id = "geoip"
name = "GeoIP Lookup"
version = "2.1"
command = "python3 geoip.py"
base_directory = "/opt/analyzers/geoip"
data_types = ["ip"]

[configuration]
endpoint = "https://geo.example.com"

[[item]]
name = "api_key"
type = "string"
required = true

[[analyzer]]
id = "geoip_org1"
organization = "org1"
rate = 100
rate_unit = "Day"

[analyzer.config]
api_key = "org1-secret"
`

const yamlDefinition = `
id: whois
name: Whois Lookup
version: "1.0"
command: node whois.js
data_types:
  - domain
items:
  - name: server
    type: string
analyzers:
  - id: whois_org1
    organization: org1
`

func TestLoadAnalyzersFromTOML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "geoip.toml"), []byte(tomlDefinition), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	manager := newTestManager(t)
	ctx := context.Background()

	if err := LoadAnalyzersFromFiles(ctx, manager.Analyzers(), dir, common.GetLogger()); err != nil {
		t.Fatalf("LoadAnalyzersFromFiles failed: %v", err)
	}

	def, err := manager.Analyzers().GetDefinition(ctx, "geoip")
	if err != nil {
		t.Fatalf("definition not loaded: %v", err)
	}
	if def.Command != "python3 geoip.py" {
		t.Errorf("unexpected command %q", def.Command)
	}
	if !def.Accepts("ip") {
		t.Error("data types not loaded")
	}
	if len(def.ConfigurationItems) != 1 || def.ConfigurationItems[0].Name != "api_key" {
		t.Errorf("items not loaded: %v", def.ConfigurationItems)
	}
	if def.Configuration["endpoint"] != "https://geo.example.com" {
		t.Errorf("shipped configuration not loaded: %v", def.Configuration)
	}

	analyzer, err := manager.Analyzers().GetAnalyzer(ctx, "geoip_org1")
	if err != nil {
		t.Fatalf("analyzer not loaded: %v", err)
	}
	if analyzer.Organization != "org1" {
		t.Errorf("unexpected organization %q", analyzer.Organization)
	}
	if analyzer.Rate == nil || *analyzer.Rate != 100 {
		t.Errorf("rate not loaded: %v", analyzer.Rate)
	}
	if analyzer.RateUnit == nil || string(*analyzer.RateUnit) != "Day" {
		t.Errorf("rate unit not loaded: %v", analyzer.RateUnit)
	}
	if analyzer.Config["api_key"] != "org1-secret" {
		t.Errorf("analyzer config not loaded: %v", analyzer.Config)
	}
}

func TestLoadAnalyzersFromYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "whois.yaml"), []byte(yamlDefinition), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	manager := newTestManager(t)
	ctx := context.Background()

	if err := LoadAnalyzersFromFiles(ctx, manager.Analyzers(), dir, common.GetLogger()); err != nil {
		t.Fatalf("LoadAnalyzersFromFiles failed: %v", err)
	}

	def, err := manager.Analyzers().GetDefinition(ctx, "whois")
	if err != nil {
		t.Fatalf("definition not loaded: %v", err)
	}
	if !def.Accepts("domain") {
		t.Error("data types not loaded from YAML")
	}

	analyzer, err := manager.Analyzers().GetAnalyzer(ctx, "whois_org1")
	if err != nil {
		t.Fatalf("analyzer not loaded: %v", err)
	}
	if analyzer.Rate != nil {
		t.Error("analyzer without rate should have no limit")
	}
}

func TestLoadAnalyzersSkipsInvalidFiles(t *testing.T) {
	dir := t.TempDir()
	// Missing command
	if err := os.WriteFile(filepath.Join(dir, "broken.toml"), []byte(`id = "broken"`), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "good.toml"), []byte(tomlDefinition), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	manager := newTestManager(t)
	ctx := context.Background()

	if err := LoadAnalyzersFromFiles(ctx, manager.Analyzers(), dir, common.GetLogger()); err != nil {
		t.Fatalf("one bad file should not abort the load: %v", err)
	}

	if _, err := manager.Analyzers().GetDefinition(ctx, "geoip"); err != nil {
		t.Errorf("valid definition should still load: %v", err)
	}
	if _, err := manager.Analyzers().GetDefinition(ctx, "broken"); err == nil {
		t.Error("invalid definition should not load")
	}
}

func TestLoadAnalyzersMissingDirectory(t *testing.T) {
	manager := newTestManager(t)
	err := LoadAnalyzersFromFiles(context.Background(), manager.Analyzers(), filepath.Join(t.TempDir(), "nope"), common.GetLogger())
	if err != nil {
		t.Errorf("missing directory should not be an error: %v", err)
	}
}

func TestLoadUsersFromFile(t *testing.T) {
	dir := t.TempDir()
	usersFile := filepath.Join(dir, "users.toml")
	if err := os.WriteFile(usersFile, []byte(`
[[user]]
id = "alice"
name = "Alice"
api_key = "key-alice"
organization = "org1"
roles = ["read", "analyze"]

[[user]]
id = "incomplete"
`), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	manager := newTestManager(t)
	ctx := context.Background()

	if err := LoadUsersFromFile(ctx, manager.Users(), usersFile, common.GetLogger()); err != nil {
		t.Fatalf("LoadUsersFromFile failed: %v", err)
	}

	user, err := manager.Users().GetUserByAPIKey(ctx, "key-alice")
	if err != nil {
		t.Fatalf("user not resolvable by api key: %v", err)
	}
	if user.ID != "alice" || user.Organization != "org1" {
		t.Errorf("unexpected user %+v", user)
	}

	if _, err := manager.Users().GetUser(ctx, "incomplete"); err == nil {
		t.Error("incomplete user entry should be skipped")
	}
}
