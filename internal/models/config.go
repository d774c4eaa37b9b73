package models

import (
	"os"

	"gopkg.in/yaml.v2"
)

type Config struct {
	ServerAddr      string   `yaml:"server_addr"`
	DatabaseURL     string   `yaml:"database_url"`
	KafkaBroker     string   `yaml:"kafka_broker"`
	KafkaTopic      string   `yaml:"kafka_topic"`
	StoragePath     string   `yaml:"storage_path"`
	ExportPath      string   `yaml:"export_path"`
	OcrLanguages    []string `yaml:"ocr_languages"`
	PreprocessLevel string   `yaml:"preprocess_level"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.OcrLanguages) == 0 {
		cfg.OcrLanguages = []string{"eng"}
	}
	return &cfg, nil
}
