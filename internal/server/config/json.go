package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/authcore/internal/flagx"
	"github.com/dmitrijs2005/authcore/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "30s" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON configuration
// files. After unmarshalling, its fields are copied into the runtime Config
// struct which uses time.Duration.
type JsonConfig struct {
	EndpointAddr          string         `json:"endpoint_addr"`
	DatabaseDSN           string         `json:"database_dsn"`
	SecretKey             string         `json:"secret_key"`
	TokenValidityDuration timex.Duration `json:"token_validity_duration"`
	LockoutThreshold      int            `json:"lockout_threshold"`
	LockoutWindow         timex.Duration `json:"lockout_window"`
	SweepInterval         timex.Duration `json:"sweep_interval"`
	IdleTimeout           timex.Duration `json:"idle_timeout"`
	ReadTimeout           timex.Duration `json:"read_timeout"`
	LoginRateLimit        float64        `json:"login_rate_limit"`
	LoginRateBurst        int            `json:"login_rate_burst"`
	BcryptCost            int            `json:"bcrypt_cost"`
	AdminUsername         string         `json:"admin_username"`
	AdminPassword         string         `json:"admin_password"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c or -config command-line flags; when
// neither is set, no JSON file is loaded. If the file cannot be read or
// contains invalid JSON, the function panics.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.EndpointAddr = c.EndpointAddr
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.TokenValidityDuration = time.Duration(c.TokenValidityDuration.Duration)
	config.LockoutThreshold = c.LockoutThreshold
	config.LockoutWindow = time.Duration(c.LockoutWindow.Duration)
	config.SweepInterval = time.Duration(c.SweepInterval.Duration)
	config.IdleTimeout = time.Duration(c.IdleTimeout.Duration)
	config.ReadTimeout = time.Duration(c.ReadTimeout.Duration)
	config.LoginRateLimit = c.LoginRateLimit
	config.LoginRateBurst = c.LoginRateBurst
	config.BcryptCost = c.BcryptCost
	config.AdminUsername = c.AdminUsername
	config.AdminPassword = c.AdminPassword
}
