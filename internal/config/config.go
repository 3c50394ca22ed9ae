package config

import (
	"fmt"
	"log"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"
)

type Listen struct {
	BindIp string `yaml:"bind_ip" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env-default:"8080"`
}

type MongoConfig struct {
	Enabled  bool   `yaml:"enabled" env-default:"false"`
	Host     string `yaml:"host" env-default:"localhost"`
	Port     string `yaml:"port" env-default:"27017"`
	User     string `yaml:"user" env-default:""`
	Password string `yaml:"password" env-default:""`
	Database string `yaml:"database" env-default:"creatorhub"`
}

// StripeConfig configures the external coupon service client.
type StripeConfig struct {
	APIKey   string `yaml:"api_key" env-default:""`
	TestMode bool   `yaml:"test_mode" env-default:"false"`
	TestKey  string `yaml:"test_key" env-default:""`
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled" env-default:"false"`
	ApiKey  string `yaml:"api_key" env-default:""`
	// CommunityChatId is the group where creator roles and titles are managed.
	CommunityChatId int64 `yaml:"community_chat_id" env-default:"0"`
}

// CommunityConfig points at the community platform's MySQL database,
// read only, used as the authoritative source of earned totals.
type CommunityConfig struct {
	Enabled  bool   `yaml:"enabled" env-default:"false"`
	HostName string `yaml:"host" env-default:"localhost"`
	Port     string `yaml:"port" env-default:"3306"`
	UserName string `yaml:"user" env-default:""`
	Password string `yaml:"password" env-default:""`
	Database string `yaml:"database" env-default:""`
	Prefix   string `yaml:"prefix" env-default:""`
}

// ProgramConfig holds the tunables of the progression core.
type ProgramConfig struct {
	CouponPercentOff    float64 `yaml:"coupon_percent_off" env-default:"10"`
	CouponRetryAttempts int     `yaml:"coupon_retry_attempts" env-default:"3"`
	CouponRetryDelaySec int     `yaml:"coupon_retry_delay_sec" env-default:"2"`
	CouponSettleSec     int     `yaml:"coupon_settle_sec" env-default:"2"`
	BlackoutStartHour   int     `yaml:"blackout_start_hour" env-default:"0"`
	BlackoutEndHour     int     `yaml:"blackout_end_hour" env-default:"7"`
	CodeLength          int     `yaml:"code_length" env-default:"16"`
	MaxCodesPerRequest  int     `yaml:"max_codes_per_request" env-default:"50"`
}

type Config struct {
	Env       string          `yaml:"env" env-default:"local"`
	Location  string          `yaml:"location" env-default:"Europe/Warsaw"`
	Listen    Listen          `yaml:"listen"`
	Mongo     MongoConfig     `yaml:"mongo"`
	Stripe    StripeConfig    `yaml:"stripe"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Community CommunityConfig `yaml:"community"`
	Program   ProgramConfig   `yaml:"program"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("config: %s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
	})
	return instance
}
