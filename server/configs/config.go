package configs

import (
	"encoding/json"
	"log" // Standard log for messages emitted before the leveled logger is configured
	"os"
	"sync"

	"github.com/darkgotchi/mpnet/server/internal/utils"
)

// Config holds the application configuration.
type Config struct {
	Server struct {
		Host     string `json:"host"`
		TCPPort  int    `json:"tcpPort"`
		LogLevel string `json:"logLevel"`
	} `json:"server"`
	Matchmaking struct {
		IntervalMS int `json:"intervalMs"`
	} `json:"matchmaking"`
	Redis struct {
		Address  string `json:"address"` // empty disables the stats recorder
		Password string `json:"password"`
		DB       int    `json:"db"`
	} `json:"redis"`
}

var (
	once   sync.Once
	config *Config
	err    error
)

// LoadConfig loads the configuration from a JSON file. It is designed to be
// called once; later calls return the first result.
func LoadConfig(filePath string) (*Config, error) {
	once.Do(func() {
		log.Printf("Loading configuration from %s", filePath)
		file, fileErr := os.ReadFile(filePath)
		if fileErr != nil {
			err = fileErr
			log.Printf("Error reading config file %s: %v", filePath, err)
			return
		}

		cfg := &Config{}
		setDefaultValues(cfg)

		if jsonErr := json.Unmarshal(file, cfg); jsonErr != nil {
			err = jsonErr
			log.Printf("Error unmarshalling config file %s: %v", filePath, err)
			return
		}
		config = cfg
		log.Println("Configuration loaded successfully.")
	})
	return config, err
}

// GetConfig returns the loaded configuration. It exits the process if
// LoadConfig has not been called successfully.
func GetConfig() *Config {
	if config == nil || err != nil {
		utils.LogFatalf("Configuration not loaded or loaded with error. Call LoadConfig first. Error: %v", err)
	}
	return config
}

func setDefaultValues(cfg *Config) {
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.TCPPort = 9999
	cfg.Server.LogLevel = "INFO"
	cfg.Matchmaking.IntervalMS = 1000
}

// CreateExampleConfigFile creates an example config.json if it doesn't exist.
func CreateExampleConfigFile(filePath string) {
	if _, statErr := os.Stat(filePath); os.IsNotExist(statErr) {
		log.Printf("Creating example config file at %s", filePath)
		exampleCfg := &Config{}
		setDefaultValues(exampleCfg)
		exampleCfg.Redis.Address = "localhost:6379"

		data, marshalErr := json.MarshalIndent(exampleCfg, "", "  ")
		if marshalErr != nil {
			log.Printf("Error marshalling example config: %v", marshalErr)
			return
		}

		if writeErr := os.WriteFile(filePath, data, 0644); writeErr != nil {
			log.Printf("Error writing example config file %s: %v", filePath, writeErr)
		} else {
			log.Printf("Example config file created: %s. Please review and update it.", filePath)
		}
	} else {
		log.Printf("Config file %s already exists. Skipping creation of example.", filePath)
	}
}
