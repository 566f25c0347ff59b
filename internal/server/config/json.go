package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/accountkeeper/internal/flagx"
	"github.com/dmitrijs2005/accountkeeper/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations accept both strings
// such as "30m" and integer nanoseconds.
type JsonConfig struct {
	EndpointAddrHTTP string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC string         `json:"endpoint_addr_grpc"`
	DatabaseDSN      string         `json:"database_dsn"`
	Storage          string         `json:"storage"`
	SessionTTL       timex.Duration `json:"session_ttl"`
	BcryptCost       int            `json:"bcrypt_cost"`
	LogLevel         string         `json:"log_level"`
}

// parseJson loads configuration values from the JSON file named by the -c or
// -config flag into config. Only keys present in the file override the
// current values. If no file is named nothing happens; an unreadable or
// invalid file panics.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{
		EndpointAddrHTTP: config.EndpointAddrHTTP,
		EndpointAddrGRPC: config.EndpointAddrGRPC,
		DatabaseDSN:      config.DatabaseDSN,
		Storage:          config.Storage,
		SessionTTL:       timex.Duration{Duration: config.SessionTTL},
		BcryptCost:       config.BcryptCost,
		LogLevel:         config.LogLevel,
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.EndpointAddrGRPC = c.EndpointAddrGRPC
	config.DatabaseDSN = c.DatabaseDSN
	config.Storage = c.Storage
	config.SessionTTL = c.SessionTTL.Duration
	config.BcryptCost = c.BcryptCost
	config.LogLevel = c.LogLevel
}
