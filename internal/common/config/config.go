package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Telegram struct {
		BotToken    string        `env:"BOT_TOKEN,required"`
		AdminID     int64         `env:"ADMIN_ID,required"`
		PollTimeout time.Duration `env:"TELEGRAM_POLL_TIMEOUT" envDefault:"30s"`
	}

	Store struct {
		SQLitePath string `env:"SQLITE_PATH" envDefault:"vpnbot.db"`
	}

	Redis struct {
		Host     string `env:"REDIS_HOST" envDefault:"localhost"`
		Port     int    `env:"REDIS_PORT" envDefault:"6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	YooKassa struct {
		ShopID    string        `env:"YOOKASSA_SHOP_ID,required"`
		SecretKey string        `env:"YOOKASSA_SECRET_KEY,required"`
		BaseURL   string        `env:"YOOKASSA_BASE_URL" envDefault:"https://api.yookassa.ru/v3"`
		ReturnURL string        `env:"YOOKASSA_RETURN_URL,required"`
		Timeout   time.Duration `env:"YOOKASSA_TIMEOUT" envDefault:"10s"`
	}

	Provision struct {
		Script  string        `env:"PROVISION_SCRIPT" envDefault:"/root/antizapret/client.sh"`
		Timeout time.Duration `env:"PROVISION_TIMEOUT" envDefault:"60s"`
		Days    string        `env:"PROVISION_DAYS" envDefault:"30"`
	}

	Billing struct {
		ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"60s"`
		MinTopUp          string        `env:"MIN_TOPUP" envDefault:"100"`
		Currency          string        `env:"CURRENCY" envDefault:"RUB"`
	}

	Menu struct {
		Limit int `env:"MENU_LIMIT" envDefault:"3"`
	}

	HTTP struct {
		Port       int    `env:"HTTP_PORT" envDefault:"8080"`
		Origin     string `env:"ORIGIN" envDefault:"http://localhost:3000"`
		AdminToken string `env:"ADMIN_API_TOKEN" envDefault:""`
	}
}

func Load() *Config {
	// .env is optional; in production the environment is set directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		panic(err)
	}

	return cfg
}
