package routing

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the routing table as written in the routing YAML file.
type Config struct {
	Modules []ModuleRoute `yaml:"modules" validate:"dive"`
}

// ModuleRoute binds a module and a message type code to its destination topics.
type ModuleRoute struct {
	ApplicationModuleName string   `yaml:"application_module_name" json:"applicationModuleName" validate:"required"`
	MessageType           string   `yaml:"message_type" json:"messageType" validate:"required"`
	Topics                []string `yaml:"topics" json:"topics" validate:"dive,required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadConfig reads and validates a routing YAML file from path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read routing config file '%s': %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("routing config '%s': %w", path, err)
	}
	return cfg, nil
}

// ParseConfig unmarshals and validates routing YAML.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	return &cfg, nil
}
