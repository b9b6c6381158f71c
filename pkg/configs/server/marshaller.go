package server

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Configuration of the archive API server.
type ServerConfig struct {
	// port the API server listens on.
	ServerPort string `yaml:"port"`

	// connection string for the publishing database.
	DBURI string `yaml:"dbURI"`

	// HMAC secret verifying queue admin tokens.
	//
	// When empty, queue decision endpoints refuse every request.
	QueueAdminSecret string `yaml:"queueAdminSecret"`
}

func LoadServerConfig(filepath string) (*ServerConfig, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, err
	}
	return Unmarshal(content)
}

func Unmarshal(conf []byte) (*ServerConfig, error) {
	var out ServerConfig
	err := yaml.Unmarshal(conf, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
