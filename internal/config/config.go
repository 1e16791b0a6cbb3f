// Package config reads the bot configuration from environment variables,
// with an optional .env file for local development.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds everything the bot needs at startup.
type Config struct {
	HTTPAddr     string
	DatabasePath string
	OrdersDir    string
	DeliveryFee  int
	Debug        bool

	AIEnabled    bool
	LlamaBaseURL string
	LlamaModel   string

	WhatsAppVerifyToken   string
	WhatsAppAccessToken   string
	WhatsAppPhoneNumberID string
	WhatsAppAppSecret     string

	TelegramBotToken string
}

// Load reads the configuration. A missing .env file is fine; env vars win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:     ":" + getenv("PORT", "5000"),
		DatabasePath: getenv("DATABASE_PATH", "vendobot.sqlite3"),
		OrdersDir:    getenv("ORDERS_DIR", "orders"),
		DeliveryFee:  getenvInt("DELIVERY_FEE", 3000),
		Debug:        getenvBool("DEBUG"),

		AIEnabled:    getenvBool("AI_ENABLED"),
		LlamaBaseURL: getenv("LLAMA_BASE_URL", "http://127.0.0.1:8080"),
		LlamaModel:   os.Getenv("LLAMA_MODEL"),

		WhatsAppVerifyToken:   os.Getenv("WHATSAPP_VERIFY_TOKEN"),
		WhatsAppAccessToken:   os.Getenv("WHATSAPP_ACCESS_TOKEN"),
		WhatsAppPhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
		WhatsAppAppSecret:     os.Getenv("WHATSAPP_APP_SECRET"),

		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func getenvBool(key string) bool {
	switch os.Getenv(key) {
	case "1", "true", "yes":
		return true
	}
	return false
}
