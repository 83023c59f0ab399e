package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
type Config struct {
	InputFile string `mapstructure:"INPUT_FILE"`
	OutputDir string `mapstructure:"OUTPUT_DIR"`

	PrimaryEmail    string `mapstructure:"PRIMARY_EMAIL"`
	PrimaryPassword string `mapstructure:"PRIMARY_PASSWORD"`
	ExtraAccounts   string `mapstructure:"EXTRA_ACCOUNTS"`

	Headless bool   `mapstructure:"HEADLESS"`
	Browser  string `mapstructure:"BROWSER"`

	DelayMinMS int `mapstructure:"DELAY_MIN_MS"`
	DelayMaxMS int `mapstructure:"DELAY_MAX_MS"`

	MaxRetries             int `mapstructure:"MAX_RETRIES"`
	AccountSwitchThreshold int `mapstructure:"ACCOUNT_SWITCH_THRESHOLD"`
	ErrorTripThreshold     int `mapstructure:"ERROR_TRIP_THRESHOLD"`
	CooldownMinutes        int `mapstructure:"COOLDOWN_MINUTES"`

	LoginTimeoutS     int `mapstructure:"LOGIN_TIMEOUT_S"`
	NavTimeoutS       int `mapstructure:"NAV_TIMEOUT_S"`
	ChallengeTimeoutS int `mapstructure:"CHALLENGE_TIMEOUT_S"`

	ServerPort string `mapstructure:"SERVER_PORT"`

	PostgresURL         string `mapstructure:"POSTGRES_URL"`
	RedisAddr           string `mapstructure:"REDIS_ADDR"`
	RecheckTTLHours     int    `mapstructure:"RECHECK_TTL_HOURS"`
	SkipRecentlyChecked bool   `mapstructure:"SKIP_RECENTLY_CHECKED"`
}

// Load reads configuration from file or environment variables.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	// Attempt to read the .env file, but don't fail if it's not present.
	// This allows configuration purely through environment variables.
	_ = viper.ReadInConfig()

	viper.SetDefault("INPUT_FILE", "links.txt")
	viper.SetDefault("OUTPUT_DIR", "results")
	viper.SetDefault("HEADLESS", true)
	viper.SetDefault("BROWSER", "chrome")
	viper.SetDefault("DELAY_MIN_MS", 2000)
	viper.SetDefault("DELAY_MAX_MS", 5000)
	viper.SetDefault("MAX_RETRIES", 2)
	viper.SetDefault("ACCOUNT_SWITCH_THRESHOLD", 50)
	viper.SetDefault("ERROR_TRIP_THRESHOLD", 5)
	viper.SetDefault("COOLDOWN_MINUTES", 5)
	viper.SetDefault("LOGIN_TIMEOUT_S", 30)
	viper.SetDefault("NAV_TIMEOUT_S", 45)
	viper.SetDefault("CHALLENGE_TIMEOUT_S", 180)
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("RECHECK_TTL_HOURS", 48)
	viper.SetDefault("SKIP_RECENTLY_CHECKED", false)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) DelayMin() time.Duration { return time.Duration(c.DelayMinMS) * time.Millisecond }
func (c *Config) DelayMax() time.Duration { return time.Duration(c.DelayMaxMS) * time.Millisecond }
func (c *Config) Cooldown() time.Duration { return time.Duration(c.CooldownMinutes) * time.Minute }

func (c *Config) LoginTimeout() time.Duration { return time.Duration(c.LoginTimeoutS) * time.Second }
func (c *Config) NavTimeout() time.Duration   { return time.Duration(c.NavTimeoutS) * time.Second }

func (c *Config) ChallengeTimeout() time.Duration {
	return time.Duration(c.ChallengeTimeoutS) * time.Second
}

func (c *Config) RecheckTTL() time.Duration { return time.Duration(c.RecheckTTLHours) * time.Hour }
