package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"ocrscan/internal/database"
	"ocrscan/internal/logger"
	"ocrscan/internal/ocr"
	"ocrscan/internal/sheets"
)

type Config struct {
	// OCR Configuration
	OCREngine    string
	OCRLanguages []string
	OCRTimeout   time.Duration

	// Tesseract Configuration
	TessdataPrefix     string
	TesseractPSM       int
	TesseractVariables map[string]string

	// Google Cloud Configuration
	GoogleCredentials          string
	GoogleApplicationCreds     string
	GoogleCloudProject         string
	GoogleCloudLocation        string
	DocumentAIProcessorID      string
	DocumentAIProcessorVersion string

	// OpenAI Configuration
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	// Database Configuration
	DBDriver       string
	DBDSN          string
	DBMaxOpenConns int

	// Google Sheets Configuration
	GoogleSheetURL       string
	GoogleSheetWorksheet string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
	LogNoColor    bool
}

// Load reads the configuration from environment variables. It only fails on
// malformed values; engine requirements are checked by Validate.
func Load() (*Config, error) {
	config := &Config{
		OCREngine:                  strings.ToLower(getEnv("OCR_ENGINE", ocr.EngineTesseract)),
		OCRLanguages:               splitList(getEnv("OCR_LANGUAGES", "th,en")),
		TessdataPrefix:             getEnv("TESSDATA_PREFIX", ""),
		GoogleCredentials:          getEnv("GOOGLE_CREDENTIALS", ""),
		GoogleApplicationCreds:     getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		GoogleCloudProject:         getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:        getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		DocumentAIProcessorID:      getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		DocumentAIProcessorVersion: getEnv("DOCUMENT_AI_PROCESSOR_VERSION", ""),
		OpenAIAPIKey:               getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:                getEnv("OPENAI_MODEL", "gpt-4o"),
		OpenAIBaseURL:              getEnv("OPENAI_BASE_URL", ""),
		DBDriver:                   getEnv("DB_DRIVER", database.DriverSQLite),
		DBDSN:                      getEnv("DB_DSN", "ocrscan.db"),
		GoogleSheetURL:             getEnv("GOOGLE_SHEET_URL", ""),
		GoogleSheetWorksheet:       getEnv("GOOGLE_SHEET_WORKSHEET", "Scans"),
		LogLevel:                   getEnv("LOG_LEVEL", "info"),
		LogFormat:                  getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:              getEnv("LOG_TIME_FORMAT", time.RFC3339),
		LogOutput:                  getEnv("LOG_OUTPUT", "stderr"),
	}

	var err error
	if config.OCRTimeout, err = getEnvDuration("OCR_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if config.TesseractPSM, err = getEnvInt("TESSERACT_PSM", 0); err != nil {
		return nil, err
	}
	if config.DBMaxOpenConns, err = getEnvInt("DB_MAX_OPEN_CONNS", 10); err != nil {
		return nil, err
	}
	if config.LogNoColor, err = getEnvBool("LOG_NO_COLOR", false); err != nil {
		return nil, err
	}
	if config.TesseractVariables, err = parseVariables(getEnv("TESSERACT_VARIABLES", "")); err != nil {
		return nil, fmt.Errorf("TESSERACT_VARIABLES: %w", err)
	}

	return config, nil
}

// Validate checks the settings the selected OCR engine and database need.
func (c *Config) Validate() error {
	switch c.OCREngine {
	case ocr.EngineTesseract, ocr.EngineVision:
	case ocr.EngineDocumentAI:
		if c.GoogleCloudProject == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT is required for the documentai engine")
		}
		if c.DocumentAIProcessorID == "" {
			return fmt.Errorf("DOCUMENT_AI_PROCESSOR_ID is required for the documentai engine")
		}
	case ocr.EngineOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai engine")
		}
	default:
		return fmt.Errorf("OCR_ENGINE %q is not one of tesseract, vision, documentai, openai", c.OCREngine)
	}

	switch c.DBDriver {
	case database.DriverSQLite, database.DriverMySQL:
	default:
		return fmt.Errorf("DB_DRIVER %q is not one of sqlite, mysql", c.DBDriver)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	return nil
}

// OCRConfig returns the engine configuration for ocr.New.
func (c *Config) OCRConfig() ocr.Config {
	return ocr.Config{
		Engine:    c.OCREngine,
		Languages: c.OCRLanguages,
		Timeout:   c.OCRTimeout,
		Tesseract: ocr.TesseractConfig{
			TessdataPrefix: c.TessdataPrefix,
			PageSegMode:    c.TesseractPSM,
			Variables:      c.TesseractVariables,
		},
		Google: ocr.GoogleConfig{
			CredentialsJSON: c.GoogleCredentials,
			CredentialsFile: c.GoogleApplicationCreds,
		},
		DocumentAI: ocr.DocumentAIConfig{
			ProjectID:        c.GoogleCloudProject,
			Location:         c.GoogleCloudLocation,
			ProcessorID:      c.DocumentAIProcessorID,
			ProcessorVersion: c.DocumentAIProcessorVersion,
		},
		OpenAI: ocr.OpenAIConfig{
			APIKey:  c.OpenAIAPIKey,
			Model:   c.OpenAIModel,
			BaseURL: c.OpenAIBaseURL,
		},
	}
}

// DatabaseConfig returns the connection settings for database.Open.
func (c *Config) DatabaseConfig() database.Config {
	cfg := database.DefaultConfig()
	cfg.Driver = c.DBDriver
	cfg.DSN = c.DBDSN
	cfg.MaxOpenConns = c.DBMaxOpenConns
	return cfg
}

// SheetsConfig returns the credentials for the Sheets export.
func (c *Config) SheetsConfig() sheets.Config {
	return sheets.Config{
		CredentialsJSON: c.GoogleCredentials,
		CredentialsFile: c.GoogleApplicationCreds,
	}
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
		NoColor:    c.LogNoColor,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be true or false: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration such as 30s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseVariables reads "key=value,key=value" pairs.
func parseVariables(s string) (map[string]string, error) {
	vars := make(map[string]string)
	for _, pair := range splitList(s) {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		vars[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return vars, nil
}
