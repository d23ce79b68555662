package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel     string    `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	SnapshotPath string    `yaml:"snapshot-path" env:"SNAPSHOT_PATH" env-default:"row3peer.db"`
	Redis        Redis     `yaml:"redis"`
	Signaling    Signaling `yaml:"signaling"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

type Signaling struct {
	PollInterval  time.Duration `yaml:"poll-interval" env:"POLL_INTERVAL" env-default:"2s"`
	PollBudget    int           `yaml:"poll-budget" env:"POLL_BUDGET" env-default:"150"`
	SweepInterval time.Duration `yaml:"sweep-interval" env:"SWEEP_INTERVAL" env-default:"10m"`
}

// MustLoad - load all configurations from the config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
