package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

const (
	SheetBackendGoogle = "google"
	SheetBackendExcel  = "excel"

	AuthMethodApplicationPassword = "application_password"
	AuthMethodJWT                 = "jwt"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	SheetBackend    string `envconfig:"SHEET_BACKEND" default:"google"`
	SpreadsheetID   string `envconfig:"GOOGLE_SPREADSHEET_ID" default:""`
	CredentialsJSON string `envconfig:"GOOGLE_CREDENTIALS_JSON" default:""`
	MainSheetName   string `envconfig:"GOOGLE_MAIN_SHEET_NAME" default:"contenidos"`
	IndexSheetName  string `envconfig:"GOOGLE_INDEX_SHEET_NAME" default:"indice_contenido"`
	WorkbookPath    string `envconfig:"SHEET_WORKBOOK_PATH" default:""`

	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY" required:"true"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	OpenAIModel   string `envconfig:"OPENAI_MODEL" default:"gpt-5.1"`

	WordPressBaseURL    string `envconfig:"WORDPRESS_BASE_URL" required:"true"`
	WordPressAuthMethod string `envconfig:"WORDPRESS_AUTH_METHOD" default:"application_password"`
	WordPressUser       string `envconfig:"WORDPRESS_USER" default:""`
	WordPressPassword   string `envconfig:"WORDPRESS_PASSWORD" default:""`
	WordPressJWTToken   string `envconfig:"WORDPRESS_JWT_TOKEN" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.NormalizedSheetBackend() {
	case SheetBackendGoogle:
		if strings.TrimSpace(c.SpreadsheetID) == "" {
			return fmt.Errorf("GOOGLE_SPREADSHEET_ID is required for the google sheet backend")
		}
		if strings.TrimSpace(c.CredentialsJSON) == "" {
			return fmt.Errorf("GOOGLE_CREDENTIALS_JSON is required for the google sheet backend")
		}
		if !json.Valid([]byte(c.CredentialsJSON)) {
			return fmt.Errorf("GOOGLE_CREDENTIALS_JSON is not valid JSON")
		}
	case SheetBackendExcel:
		if strings.TrimSpace(c.WorkbookPath) == "" {
			return fmt.Errorf("SHEET_WORKBOOK_PATH is required for the excel sheet backend")
		}
	default:
		return fmt.Errorf("SHEET_BACKEND must be %q or %q", SheetBackendGoogle, SheetBackendExcel)
	}

	if strings.TrimSpace(c.MainSheetName) == "" {
		return fmt.Errorf("GOOGLE_MAIN_SHEET_NAME is required")
	}
	if strings.TrimSpace(c.IndexSheetName) == "" {
		return fmt.Errorf("GOOGLE_INDEX_SHEET_NAME is required")
	}

	if strings.TrimSpace(c.OpenAIAPIKey) == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if strings.TrimSpace(c.WordPressBaseURL) == "" {
		return fmt.Errorf("WORDPRESS_BASE_URL is required")
	}

	switch c.NormalizedAuthMethod() {
	case AuthMethodApplicationPassword:
		if strings.TrimSpace(c.WordPressUser) == "" || strings.TrimSpace(c.WordPressPassword) == "" {
			return fmt.Errorf("WORDPRESS_USER and WORDPRESS_PASSWORD are required for application_password auth")
		}
	case AuthMethodJWT:
		if strings.TrimSpace(c.WordPressJWTToken) == "" {
			return fmt.Errorf("WORDPRESS_JWT_TOKEN is required for jwt auth")
		}
	default:
		return fmt.Errorf("WORDPRESS_AUTH_METHOD must be %q or %q", AuthMethodApplicationPassword, AuthMethodJWT)
	}

	return nil
}

func (c *Config) NormalizedSheetBackend() string {
	return strings.TrimSpace(strings.ToLower(c.SheetBackend))
}

func (c *Config) NormalizedAuthMethod() string {
	return strings.TrimSpace(strings.ToLower(c.WordPressAuthMethod))
}
