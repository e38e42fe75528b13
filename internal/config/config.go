// Package config loads and validates the directory-path configuration the
// CLI needs to locate the hidden data, the cover images, and the output of
// each operation.
//
// Grounded on the teacher's config.Load/Validate shape (defaults merged
// under a JSON file, then validated), with the validation step itself
// delegated to github.com/santhosh-tekuri/jsonschema/v5 against an embedded
// schema the way ClusterCockpit-cc-backend's pkg/schema package does it, and
// environment-variable overrides (optionally sourced from a .env file via
// github.com/joho/godotenv) layered on top so CI jobs can redirect paths
// without editing JSON.
package config

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*
var schemaFiles embed.FS

// Config resolves the four working directories the spec names, plus the
// ambient logging/progress toggles.
type Config struct {
	DataToHide      string `json:"data_to_hide"`
	InputPhotos     string `json:"input_photos"`
	ProcessedPhotos string `json:"processed_photos"`
	ExtractedData   string `json:"extracted_data"`
	LogLevel        string `json:"log_level"`
	ShowProgressBar bool   `json:"show_progress_bar"`
}

// Default returns the directory layout the original tool assumes when run
// from its own working directory, with progress reporting on and info-level
// logging.
func Default() Config {
	return Config{
		DataToHide:      "Data_To_Hide",
		InputPhotos:     "Input_Photos",
		ProcessedPhotos: "Processed_Photos",
		ExtractedData:   "Extracted_Data",
		LogLevel:        "info",
		ShowProgressBar: true,
	}
}

// Load validates the JSON file at path (if non-empty) against the embedded
// schema, reads it over the defaults, then applies PIXSAFE_* environment
// overrides — loaded from envFile first, if envFile is non-empty and
// exists.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := validateSchema(raw); err != nil {
			return cfg, fmt.Errorf("config: %s failed schema validation: %w", path, err)
		}
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return cfg, fmt.Errorf("config: loading %s: %w", envFile, err)
			}
		}
	}
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateSchema(raw []byte) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	schemaBytes, err := schemaFiles.ReadFile("schemas/config.schema.json")
	if err != nil {
		return err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("config.schema.json", bytes.NewReader(schemaBytes)); err != nil {
		return err
	}
	schema, err := compiler.Compile("config.schema.json")
	if err != nil {
		return err
	}
	return schema.Validate(doc)
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PIXSAFE_DATA_TO_HIDE"); v != "" {
		c.DataToHide = v
	}
	if v := os.Getenv("PIXSAFE_INPUT_PHOTOS"); v != "" {
		c.InputPhotos = v
	}
	if v := os.Getenv("PIXSAFE_PROCESSED_PHOTOS"); v != "" {
		c.ProcessedPhotos = v
	}
	if v := os.Getenv("PIXSAFE_EXTRACTED_DATA"); v != "" {
		c.ExtractedData = v
	}
	if v := os.Getenv("PIXSAFE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("PIXSAFE_SHOW_PROGRESS_BAR"); v != "" {
		c.ShowProgressBar = v != "0" && v != "false"
	}
}

// Validate fills in any empty path field from Default and checks the log
// level is one of the recognized names.
func (c *Config) Validate() error {
	def := Default()
	if c.DataToHide == "" {
		c.DataToHide = def.DataToHide
	}
	if c.InputPhotos == "" {
		c.InputPhotos = def.InputPhotos
	}
	if c.ProcessedPhotos == "" {
		c.ProcessedPhotos = def.ProcessedPhotos
	}
	if c.ExtractedData == "" {
		c.ExtractedData = def.ExtractedData
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: invalid log_level %q", c.LogLevel)
	}
	return nil
}
