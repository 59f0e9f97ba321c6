// Package config предоставялет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	HTTPServer              `yaml:"http_server"`
	RedisConnection         `yaml:"redis_connection"`
	RabbitMQ                `yaml:"rabbitmq"`
	JWTToken                `yaml:"jwttoken"`
	Stripe                  `yaml:"stripe"`
	Firebase                `yaml:"firebase"`
	Scheduler               `yaml:"scheduler"`
	Sender                  `yaml:"sender"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
	// AuthzErrorStatus — HTTP-статус для отказа в доступе к чужому ресурсу (400 или 403).
	AuthzErrorStatus int     `yaml:"authz_error_status" env-default:"403"`
	RateLimitRPS     float64 `yaml:"rate_limit_rps" env-default:"5"`
	RateLimitBurst   int     `yaml:"rate_limit_burst" env-default:"10"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// RabbitMQ структура для подключения к брокеру сообщений
type RabbitMQ struct {
	RabbitMQURL          string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries   int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay   time.Duration `yaml:"retry_delay" env-default:"3s"`
	// Пауза перед возвратом сообщения в очередь после ошибки обработчика.
	RabbitMQRequeueDelay time.Duration `yaml:"requeue_delay" env-default:"5s"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// Stripe структура с настройками платёжного шлюза
type Stripe struct {
	StripeSecretKey     string        `yaml:"secret_key" env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string        `yaml:"webhook_secret" env:"STRIPE_WEBHOOK_SECRET"`
	MonthlyPriceID      string        `yaml:"monthly_price_id" env:"STRIPE_MONTHLY_PRICE_ID"`
	YearlyPriceID       string        `yaml:"yearly_price_id" env:"STRIPE_YEARLY_PRICE_ID"`
	SuccessURL          string        `yaml:"success_url" env:"STRIPE_SUCCESS_URL"`
	CancelURL           string        `yaml:"cancel_url" env:"STRIPE_CANCEL_URL"`
	StripeTimeout       time.Duration `yaml:"timeout" env-default:"15s"`
}

// Firebase структура с настройками push-уведомлений
type Firebase struct {
	CredentialsFile string        `yaml:"credentials_file" env:"FIREBASE_CREDENTIALS_FILE"`
	ProjectID       string        `yaml:"project_id" env:"FIREBASE_PROJECT_ID"`
	PushTimeout     time.Duration `yaml:"timeout" env-default:"10s"`
}

// Scheduler структура с настройками рассылки аффирмаций
type Scheduler struct {
	Interval               time.Duration `yaml:"interval" env:"SCHEDULER_INTERVAL" env-default:"24h"`
	BatchSize              int           `yaml:"batch_size" env-default:"500"`
	SchedulerHealthAddress string        `yaml:"health_address" env:"SCHEDULER_HEALTH_ADDRESS" env-default:":50051"`
}

// Sender структура с настройками отправителя уведомлений
type Sender struct {
	SenderHealthAddress string `yaml:"health_address" env:"SENDER_HEALTH_ADDRESS" env-default:":50052"`
}

// MustLoad функция для загрузки конфига, путь берётся из переменной CONFIG_PATH
func MustLoad() *Config {
	// .env необязателен, переменные окружения могут быть заданы снаружи
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// Load читает конфиг из файла и переменных окружения.
func Load(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("file: %s - does not exist", configPath)
	}
	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, err
	}
	if cfg.AuthzErrorStatus != 400 && cfg.AuthzErrorStatus != 403 {
		return nil, fmt.Errorf("http_server.authz_error_status must be 400 or 403, got %d", cfg.AuthzErrorStatus)
	}
	return &cfg, nil
}

// PriceIDs возвращает соответствие тарифа идентификатору цены в Stripe.
func (c *Config) PriceIDs() map[string]string {
	return map[string]string{
		"monthly": c.MonthlyPriceID,
		"yearly":  c.YearlyPriceID,
	}
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"RabbitMQ:\n"+
			"  MaxRetries: %d\n"+
			"  RequeueDelay: %s\n"+
			"Scheduler:\n"+
			"  Interval: %s\n"+
			"  BatchSize: %d\n"+
			"  HealthAddress: %s\n"+
			"Sender:\n"+
			"  HealthAddress: %s\n",
		c.Env,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.AddressRedis,
		c.DB,
		c.RabbitMQMaxRetries,
		c.RabbitMQRequeueDelay,
		c.Interval,
		c.BatchSize,
		c.SchedulerHealthAddress,
		c.SenderHealthAddress,
	)
}
