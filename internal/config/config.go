package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/nanoncore/nano-vigor/drivers/snmp"
	"github.com/nanoncore/nano-vigor/types"
)

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

type RouterSection struct {
	Name        string        `mapstructure:"name"`
	Host        string        `mapstructure:"host"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	Port        int           `mapstructure:"port"`
	Transport   string        `mapstructure:"transport"` // telnet or ssh
	Timeout     time.Duration `mapstructure:"timeout"`
	StepTimeout time.Duration `mapstructure:"step_timeout"`
}

type PollConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type HTTPConfig struct {
	Listen string `mapstructure:"listen"`
}

type SNMPConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Community string `mapstructure:"community"`
	Version   string `mapstructure:"version"`
	Port      int    `mapstructure:"port"`
}

type Config struct {
	Router  RouterSection `mapstructure:"router"`
	Poll    PollConfig    `mapstructure:"poll"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	SNMP    SNMPConfig    `mapstructure:"snmp"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// EnvPrefix prefixes every environment override, e.g. VIGOR_ROUTER_PASSWORD
const EnvPrefix = "VIGOR"

// Load reads path (YAML) with environment overrides. An empty path uses
// defaults and environment only. A .env file in the working directory is
// loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults; empty ones make the keys visible to env overrides
	v.SetDefault("router.name", types.DefaultName)
	v.SetDefault("router.host", "")
	v.SetDefault("router.username", "")
	v.SetDefault("router.password", "")
	v.SetDefault("router.port", 0)
	v.SetDefault("router.transport", string(types.TransportTelnet))
	v.SetDefault("router.timeout", types.DefaultDialTimeout)
	v.SetDefault("router.step_timeout", types.DefaultStepTimeout)
	v.SetDefault("poll.interval", types.DefaultPollInterval)
	v.SetDefault("http.listen", ":9130")
	v.SetDefault("snmp.enabled", false)
	v.SetDefault("snmp.community", "public")
	v.SetDefault("snmp.version", "2c")
	v.SetDefault("snmp.port", snmp.DefaultPort)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the settings a sensor cannot start without
func (c *Config) Validate() error {
	var errs []error

	if err := c.RouterConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Poll.Interval <= 0 {
		errs = append(errs, types.NewPollError(types.ErrInvalidConfig, "", fmt.Errorf("poll.interval must be positive, got %s", c.Poll.Interval)))
	}
	if c.HTTP.Listen == "" {
		errs = append(errs, types.NewPollError(types.ErrInvalidConfig, "", errors.New("http.listen is required")))
	}

	return errors.Join(errs...)
}

// RouterConfig converts the router and snmp sections into a types.RouterConfig
func (c *Config) RouterConfig() types.RouterConfig {
	rc := types.RouterConfig{
		RouterCredentials: types.RouterCredentials{
			Host:     c.Router.Host,
			Username: c.Router.Username,
			Password: c.Router.Password,
		},
		Name:        c.Router.Name,
		Port:        c.Router.Port,
		Transport:   types.Transport(strings.ToLower(c.Router.Transport)),
		Timeout:     c.Router.Timeout,
		StepTimeout: c.Router.StepTimeout,
	}

	if c.SNMP.Enabled {
		rc.Metadata = map[string]string{
			snmp.MetaCommunity: c.SNMP.Community,
			snmp.MetaVersion:   c.SNMP.Version,
			snmp.MetaPort:      strconv.Itoa(c.SNMP.Port),
		}
	}

	return rc
}
