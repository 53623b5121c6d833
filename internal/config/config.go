package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	viper "github.com/spf13/viper"
)

const (
	StoreDriverRedis    = "redis"
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	// 設定檔路徑，未設定時讀取工作目錄下的 .env
	ConfigPathEnv = "ASSIA_CONFIG_PATH"
)

var ErrInvalidConfig = errors.New("invalid config")

/*
把init跟read分開
init : 需要設置viper watch 與 onConfigChange
read : 一般讀取 需要使用讀寫鎖
*/
var config_singleton *ConfigSingleTon
var muonce sync.Once

type ConfigSingleTon struct {
	Config *Config
	mu     sync.RWMutex
}

type Config struct {
	ModulerName string `mapstructure:"MODULER_NAME"`
	ServerPort  string `mapstructure:"SERVER_PORT"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`

	StoreDriver   string `mapstructure:"STORE_DRIVER"`
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	DbName        string `mapstructure:"POSTGRES_DB"`
	DbHost        string `mapstructure:"POSTGRES_HOST"`
	DbPort        string `mapstructure:"POSTGRES_PORT"`
	DbUser        string `mapstructure:"POSTGRES_USER"`
	DbPas         string `mapstructure:"POSTGRES_PASSWORD"`
	OrdersKey     string `mapstructure:"ORDERS_KEY"`

	ShippingFee     string `mapstructure:"SHIPPING_FEE"`
	AdminPassphrase string `mapstructure:"ADMIN_PASSPHRASE"`

	GeminiAPIKey      string  `mapstructure:"GEMINI_API_KEY"`
	GeminiModel       string  `mapstructure:"GEMINI_MODEL"`
	GeminiTemperature float64 `mapstructure:"GEMINI_TEMPERATURE"`

	CatalogBaseURL        string `mapstructure:"CATALOG_BASE_URL"`
	CatalogConsumerKey    string `mapstructure:"CATALOG_CONSUMER_KEY"`
	CatalogConsumerSecret string `mapstructure:"CATALOG_CONSUMER_SECRET"`
	CatalogPageSize       int    `mapstructure:"CATALOG_PAGE_SIZE"`

	HistoryLimit         int `mapstructure:"HISTORY_LIMIT"`
	CheckoutResetSeconds int `mapstructure:"CHECKOUT_RESET_SECONDS"`

	// 每個 session 對助理的請求限流，容量 0 代表不限流
	RateLimitCapacity int     `mapstructure:"RATE_LIMIT_CAPACITY"`
	RateLimitRatePS   float64 `mapstructure:"RATE_LIMIT_RATE_PS"`

	// 同一來源 IP 跨 session 共用的限流，避免開新 session 繞過
	RateLimitClientCapacity int     `mapstructure:"RATE_LIMIT_CLIENT_CAPACITY"`
	RateLimitClientRatePS   float64 `mapstructure:"RATE_LIMIT_CLIENT_RATE_PS"`

	KafkaBrokers    string `mapstructure:"KAFKA_BROKERS"`
	KafkaOrderTopic string `mapstructure:"KAFKA_ORDER_TOPIC"`

	StoreProfilePath string `mapstructure:"STORE_PROFILE_PATH"`
}

var defaults = map[string]any{
	"MODULER_NAME":               "assia",
	"SERVER_PORT":                "8080",
	"LOG_LEVEL":                  "info",
	"STORE_DRIVER":               StoreDriverMemory,
	"REDIS_ADDR":                 "localhost:6379",
	"REDIS_PASSWORD":             "",
	"REDIS_DB":                   0,
	"POSTGRES_DB":                "assia",
	"POSTGRES_HOST":              "localhost",
	"POSTGRES_PORT":              "5432",
	"POSTGRES_USER":              "postgres",
	"POSTGRES_PASSWORD":          "",
	"ORDERS_KEY":                 "cpad_orders",
	"SHIPPING_FEE":               "6.99",
	"ADMIN_PASSPHRASE":           "",
	"GEMINI_API_KEY":             "",
	"GEMINI_MODEL":               "gemini-2.5-flash",
	"GEMINI_TEMPERATURE":         0.1,
	"CATALOG_BASE_URL":           "https://cpadboston.com/wp-json/wc/v3",
	"CATALOG_CONSUMER_KEY":       "",
	"CATALOG_CONSUMER_SECRET":    "",
	"CATALOG_PAGE_SIZE":          8,
	"HISTORY_LIMIT":              20,
	"CHECKOUT_RESET_SECONDS":     3,
	"RATE_LIMIT_CAPACITY":        10,
	"RATE_LIMIT_RATE_PS":         0.2,
	"RATE_LIMIT_CLIENT_CAPACITY": 30,
	"RATE_LIMIT_CLIENT_RATE_PS":  0.5,
	"KAFKA_BROKERS":              "",
	"KAFKA_ORDER_TOPIC":          "assia.orders",
	"STORE_PROFILE_PATH":         "",
}

func GetConfig() *Config {
	initConfig()
	config_singleton.mu.RLock()
	defer config_singleton.mu.RUnlock()
	return config_singleton.Config
}

func initConfig() {
	muonce.Do(func() {
		config_singleton = &ConfigSingleTon{}
		path := configPath()
		v, cf, err := load(path)
		if err != nil {
			log.Fatalf("error read config: %v", err)
		}
		config_singleton.Config = cf

		if !fileExists(path) {
			return
		}
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			_, reloaded, err := load(path)
			if err != nil {
				log.Printf("failed to reload config file %s: %v", e.Name, err)
				return
			}
			config_singleton.mu.Lock()
			config_singleton.Config = reloaded
			config_singleton.mu.Unlock()
		})
	})
}

// Load 讀取指定的設定檔，不存在時只使用環境變數與預設值
// 單純回傳錯誤  由外部決定要不要Fatal
func Load(path string) (*Config, error) {
	_, cf, err := load(path)
	return cf, err
}

func load(path string) (*viper.Viper, *Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if fileExists(path) {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cf := &Config{}
	if err := v.Unmarshal(cf); err != nil {
		return nil, nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cf.Validate(); err != nil {
		return nil, nil, err
	}
	return v, cf, nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverRedis, StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("%w: unknown STORE_DRIVER %q", ErrInvalidConfig, c.StoreDriver)
	}
	if _, err := c.ShippingFeeAmount(); err != nil {
		return err
	}
	if c.HistoryLimit <= 0 || c.HistoryLimit%2 != 0 {
		return fmt.Errorf("%w: HISTORY_LIMIT must be a positive even number", ErrInvalidConfig)
	}
	if c.CheckoutResetSeconds <= 0 {
		return fmt.Errorf("%w: CHECKOUT_RESET_SECONDS must be positive", ErrInvalidConfig)
	}
	if c.RateLimitCapacity < 0 || c.RateLimitRatePS < 0 || c.RateLimitClientCapacity < 0 || c.RateLimitClientRatePS < 0 {
		return fmt.Errorf("%w: RATE_LIMIT_* must not be negative", ErrInvalidConfig)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: LOG_LEVEL %q", ErrInvalidConfig, c.LogLevel)
	}
	return nil
}

// ZerologLevel 已通過 Validate，解析失敗時退回 info
func (c *Config) ZerologLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

func (c *Config) ShippingFeeAmount() (decimal.Decimal, error) {
	fee, err := decimal.NewFromString(strings.TrimSpace(c.ShippingFee))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: SHIPPING_FEE %q: %w", ErrInvalidConfig, c.ShippingFee, err)
	}
	if fee.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: SHIPPING_FEE must not be negative", ErrInvalidConfig)
	}
	return fee, nil
}

func (c *Config) CheckoutResetDelay() time.Duration {
	return time.Duration(c.CheckoutResetSeconds) * time.Second
}

// KafkaBrokerList 未設定時回傳空，代表不送出訂單事件
func (c *Config) KafkaBrokerList() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func configPath() string {
	if p := os.Getenv(ConfigPathEnv); p != "" {
		return p
	}
	return ".env"
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
