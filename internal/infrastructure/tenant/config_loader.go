// Package tenant handles loading and providing tenant-specific configurations.
package tenant

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/FundingReach/intakeflow-go/internal/infrastructure/observability/logging"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/security"
)

// Config represents the structure of a single tenant's configuration
type Config struct {
	TenantID          string   `json:"tenantId"`
	Domains           []string `json:"domains"`
	Status            string   `json:"status"`
	DatabaseType      string   `json:"databaseType"`
	TursoDatabase     string   `json:"TURSO_DATABASE_URL"`
	TursoToken        string   `json:"TURSO_AUTH_TOKEN"`
	JWTSecret         string   `json:"JWT_SECRET"`
	AESKey            string   `json:"AES_KEY"`
	TursoEnabled      bool     `json:"TURSO_ENABLED"`
	AdminPasswordHash string   `json:"ADMIN_PASSWORD_HASH,omitempty"`
	CRMWebhookURL     string   `json:"CRM_WEBHOOK_URL,omitempty"`
	CRMAPIKey         string   `json:"CRM_API_KEY,omitempty"`
	WarmLeadURL       string   `json:"WARM_LEAD_WEBHOOK_URL,omitempty"`
	AlertEmailTo      string   `json:"ALERT_EMAIL_TO,omitempty"`
	SQLitePath        string   `json:"-"`
}

// WarmLeadDestination returns the warm lead webhook URL for this tenant,
// falling back to the general CRM webhook when no dedicated URL is set.
func (c *Config) WarmLeadDestination() string {
	if c.WarmLeadURL != "" {
		return c.WarmLeadURL
	}
	return c.CRMWebhookURL
}

// configRoot returns the base directory for all tenant configuration
func configRoot() (string, error) {
	if root := os.Getenv("INTAKEFLOW_HOME"); root != "" {
		return root, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find user home directory: %w", err)
	}
	return filepath.Join(homeDir, "intakeflow-server"), nil
}

// LoadTenantConfig loads configuration for a specific tenant from its env.json file.
func LoadTenantConfig(tenantID string, logger *logging.ChanneledLogger) (*Config, error) {
	root, err := configRoot()
	if err != nil {
		return nil, err
	}

	configPath := filepath.Join(root, "config", tenantID, "env.json")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("tenant config file not found at %s", configPath)
	}

	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("could not read tenant config file: %w", err)
	}

	var tenantConfig Config
	if err := json.Unmarshal(configFile, &tenantConfig); err != nil {
		return nil, fmt.Errorf("could not parse tenant config json: %w", err)
	}

	tenantConfig.TenantID = tenantID
	tenantConfig.SQLitePath = filepath.Join(root, "db", tenantID, "intakeflow.db")

	return &tenantConfig, nil
}

// TenantRegistry holds the global tenant configuration
type TenantRegistry struct {
	Tenants map[string]TenantInfo `json:"tenants"`
}

// TenantInfo holds tenant metadata
type TenantInfo struct {
	TenantID     string   `json:"tenantId"`
	Domains      []string `json:"domains"`
	Status       string   `json:"status"`       // "unknown", "inactive", "active"
	DatabaseType string   `json:"databaseType"` // "turso", "sqlite3"
}

// LoadTenantRegistry loads the global tenant registry
func LoadTenantRegistry() (*TenantRegistry, error) {
	root, err := configRoot()
	if err != nil {
		return nil, err
	}

	registryPath := filepath.Join(root, "config", "registry", "tenants.json")

	if _, err := os.Stat(registryPath); os.IsNotExist(err) {
		// Create default registry if it doesn't exist
		defaultRegistry := &TenantRegistry{
			Tenants: map[string]TenantInfo{
				"default": {
					TenantID:     "default",
					Domains:      []string{"*"},
					Status:       "inactive",
					DatabaseType: "",
				},
			},
		}
		return defaultRegistry, nil
	}

	data, err := os.ReadFile(registryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read tenant registry: %w", err)
	}

	var registry TenantRegistry
	if err := json.Unmarshal(data, &registry); err != nil {
		return nil, fmt.Errorf("failed to parse tenant registry: %w", err)
	}

	return &registry, nil
}

// RegisterTenant adds a new tenant to the registry
func RegisterTenant(tenantID string) error {
	root, err := configRoot()
	if err != nil {
		return err
	}

	registryPath := filepath.Join(root, "config", "registry", "tenants.json")

	registry, err := LoadTenantRegistry()
	if err != nil {
		return err
	}

	if _, exists := registry.Tenants[tenantID]; !exists {
		registry.Tenants[tenantID] = TenantInfo{
			TenantID:     tenantID,
			Domains:      []string{"*"},
			Status:       "inactive",
			DatabaseType: "",
		}

		registryDir := filepath.Dir(registryPath)
		if err := os.MkdirAll(registryDir, 0755); err != nil {
			return fmt.Errorf("failed to create registry directory: %w", err)
		}

		data, err := json.MarshalIndent(registry, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal registry: %w", err)
		}

		if err := os.WriteFile(registryPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write registry: %w", err)
		}
	}

	return ensureTenantEnv(root, tenantID)
}

// ensureTenantEnv writes a fresh env.json with generated secrets for a
// tenant that has none yet. Existing files are left untouched.
func ensureTenantEnv(root, tenantID string) error {
	envPath := filepath.Join(root, "config", tenantID, "env.json")
	if _, err := os.Stat(envPath); err == nil {
		return nil
	}

	jwtSecret, err := security.GenerateSecureKey(64)
	if err != nil {
		return fmt.Errorf("failed to generate JWT secret: %w", err)
	}
	aesKey, err := security.GenerateSecureKey(64)
	if err != nil {
		return fmt.Errorf("failed to generate AES key: %w", err)
	}

	env := map[string]string{
		"JWT_SECRET": jwtSecret,
		"AES_KEY":    aesKey,
	}

	if err := os.MkdirAll(filepath.Dir(envPath), 0755); err != nil {
		return fmt.Errorf("failed to create tenant config directory: %w", err)
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal tenant env: %w", err)
	}

	if err := os.WriteFile(envPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write tenant env: %w", err)
	}

	return nil
}
