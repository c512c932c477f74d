package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/soffa-projects/jobrpc/log"
)

// Client configures the command client and the jobrpc CLI.
type Client struct {
	Host           string        `envconfig:"JOBRPC_HOST" default:"127.0.0.1" validate:"required"`
	Port           int           `envconfig:"JOBRPC_PORT" validate:"omitempty,min=1,max=65535"`
	ConnectTimeout time.Duration `envconfig:"JOBRPC_CONNECT_TIMEOUT" default:"3s" validate:"gte=0"`
	ReadTimeout    time.Duration `envconfig:"JOBRPC_READ_TIMEOUT" default:"120s" validate:"gte=0"`
	MaxWait        time.Duration `envconfig:"JOBRPC_MAX_WAIT" validate:"gte=0"`
	Retries        int           `envconfig:"JOBRPC_RETRIES" default:"5" validate:"min=1"`
	// Cache backs the idempotency store: "memory" or redis://host:port/db.
	Cache      string `envconfig:"JOBRPC_CACHE" default:"memory" validate:"required"`
	PolicyFile string `envconfig:"JOBRPC_POLICY_FILE"`
	LogLevel   string `envconfig:"JOBRPC_LOG_LEVEL" default:"warn" validate:"oneof=trace debug info warn warning error fatal"`
	LogFormat  string `envconfig:"JOBRPC_LOG_FORMAT" default:"text" validate:"oneof=text json"`
}

// Proxy configures the jobrpc-tee binary.
type Proxy struct {
	Port     int    `envconfig:"TEE_PORT" default:"5209" validate:"min=1,max=65535"`
	Upstream string `envconfig:"TEE_UPSTREAM" default:"http://127.0.0.1:5210" validate:"required,url"`
	LogDir   string `envconfig:"TEE_LOG_DIR" default:"logs" validate:"required"`
	// AllowOrigins is a comma separated CORS allow list, empty for none.
	AllowOrigins []string      `envconfig:"TEE_ALLOW_ORIGINS"`
	Timeout      time.Duration `envconfig:"TEE_TIMEOUT" default:"130s" validate:"gt=0"`
	LogLevel     string        `envconfig:"TEE_LOG_LEVEL" default:"info" validate:"oneof=trace debug info warn warning error fatal"`
	LogFormat    string        `envconfig:"TEE_LOG_FORMAT" default:"text" validate:"oneof=text json"`
}

// Load reads .env (outside production), then the environment, into cfg and
// validates the result.
func Load(cfg any) error {
	env := os.Getenv("ENV")
	if env != "production" && env != "prod" {
		if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
			log.Warn("unable to load .env file: %v", err)
		}
	}
	if err := envconfig.Process("", cfg); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	return Validate(cfg)
}

// MustLoad is Load for main() and init code.
func MustLoad(cfg any) {
	if err := Load(cfg); err != nil {
		panic(err)
	}
}

func Validate(cfg any) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
