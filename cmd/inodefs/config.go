package main

import (
	"io/ioutil"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

const envVarPrefix = "INODEFS"

type Config struct {
	Image  string `envconfig:"IMAGE"  yaml:"image"`
	Blocks uint64 `envconfig:"BLOCKS" yaml:"blocks"`
	Debug  uint64 `envconfig:"DEBUG"  yaml:"debug"`
}

func defaultConfig() Config {
	return Config{Image: "inodefs.img", Blocks: 1024}
}

// LoadConfig layers an optional YAML file (INODEFS_CONFIG_FILE) and then
// INODEFS_* environment variables over the defaults.
func LoadConfig() (*Config, error) {
	c := defaultConfig()
	if configFile := os.Getenv(envVarPrefix + "_CONFIG_FILE"); configFile != "" {
		data, err := ioutil.ReadFile(configFile)
		if err != nil {
			return nil, errors.Wrap(err, "reading config file")
		}
		if err := yaml.UnmarshalStrict(data, &c); err != nil {
			return nil, errors.Wrap(err, "unmarshaling config file")
		}
	}

	if err := envconfig.Process(envVarPrefix, &c); err != nil {
		return nil, errors.Wrap(err, "parsing environment variables")
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if c.Image == "" {
		return errors.New("missing required config: image (INODEFS_IMAGE)")
	}
	if c.Blocks < 2 {
		return errors.Errorf("blocks must be at least 2, got %d", c.Blocks)
	}
	return nil
}
