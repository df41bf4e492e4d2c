package discover

import (
	"embed"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed config/connectors.yaml
var connectorsYAML embed.FS

// Registry holds the configuration for all discovery connectors.
type Registry struct {
	Connectors []ConnectorConfig `yaml:"connectors"`
}

// ConnectorConfig defines a single source the discovery sync pulls
// opportunities from.
type ConnectorConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Strategy string `yaml:"strategy"` // "api_sam", "api_govcon"
	BaseURL  string `yaml:"base_url,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`
	Enabled  bool   `yaml:"enabled"`

	// Search parameters pushed down to the source API.
	Keywords   []string `yaml:"keywords,omitempty"`
	NAICSCodes []string `yaml:"naics_codes,omitempty"`
	SetAsides  []string `yaml:"set_asides,omitempty"`
	MaxRecords int      `yaml:"max_records,omitempty"` // Default: 100

	TimeoutSeconds int `yaml:"timeout_seconds,omitempty"` // Default: 60
}

// LoadRegistry reads the embedded connectors.yaml. The path parameter
// is a filesystem fallback for local development overrides.
func LoadRegistry(path string) (*Registry, error) {
	data, err := connectorsYAML.ReadFile("config/connectors.yaml")
	if err != nil {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}

	// Expand environment variables within the YAML content (e.g. ${SAM_API_KEY})
	expanded := os.ExpandEnv(string(data))

	var reg Registry
	if err := yaml.Unmarshal([]byte(expanded), &reg); err != nil {
		return nil, err
	}

	return &reg, nil
}
