// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config is the bot's full environment-driven configuration. Only the token
// and application id are required; everything else has a default.
type Config struct {
	Token string
	AppID string

	// GuildID scopes slash-command registration to one guild when set;
	// empty registers globally.
	GuildID string

	// Port is the keepalive HTTP listen port.
	Port string

	// Category is the name of the category channel the private farm rooms
	// are created under.
	Category string

	// OrganizerRole is the role name that grants farm management rights in
	// addition to the host and Manage Channels holders.
	OrganizerRole string

	AutoFinalizeOnFull      bool
	AutoReopenUnderCapacity bool

	LogLevel string
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	cfg := Config{
		Token:                   os.Getenv("DISCORD_TOKEN"),
		AppID:                   os.Getenv("DISCORD_APP_ID"),
		GuildID:                 os.Getenv("GUILD_ID"),
		Port:                    getenv("PORT", "8080"),
		Category:                getenv("FARM_CATEGORY", "Active Farms"),
		OrganizerRole:           getenv("ORGANIZER_ROLE", "farm organizer"),
		AutoFinalizeOnFull:      getenvBool("AUTO_FINALIZE_ON_FULL", true),
		AutoReopenUnderCapacity: getenvBool("AUTO_REOPEN_UNDER_CAPACITY", true),
		LogLevel:                getenv("LOG_LEVEL", "info"),
	}
	if cfg.Token == "" {
		return Config{}, fmt.Errorf("DISCORD_TOKEN is required")
	}
	if cfg.AppID == "" {
		return Config{}, fmt.Errorf("DISCORD_APP_ID is required")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
