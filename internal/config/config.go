package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration required by the API process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App    AppConfig
	Mongo  MongoConfig
	OpenAI OpenAIConfig
	Vapi   VapiConfig
	Redis  RedisConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type MongoConfig struct {
	// URI must not be logged; it contains credentials.
	URI      string
	Database string
}

type OpenAIConfig struct {
	APIKey string
	Model  string
}

type VapiConfig struct {
	APIKey      string
	AssistantID string
	SecretToken string
	BaseURL     string
}

type RedisConfig struct {
	// Addr is optional; with no address the rate limiter is disabled.
	Addr string
}

const (
	defaultMongoDatabase = "Nexa"
	defaultOpenAIModel   = "gpt-4o-mini"
)

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.App.Port = n
	}

	c.Mongo.URI = strings.TrimSpace(os.Getenv("MONGO_URI"))
	c.Mongo.Database = strings.TrimSpace(os.Getenv("MONGO_DB"))

	c.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	c.OpenAI.Model = strings.TrimSpace(os.Getenv("OPENAI_MODEL"))

	c.Vapi.APIKey = os.Getenv("VAPI_API_KEY")
	c.Vapi.AssistantID = strings.TrimSpace(os.Getenv("VAPI_ASSISTANT_ID"))
	c.Vapi.SecretToken = os.Getenv("VAPI_SECRET_TOKEN")
	c.Vapi.BaseURL = strings.TrimSpace(os.Getenv("VAPI_BASE_URL"))

	c.Redis.Addr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	c.applyDefaults()
	return c, nil
}

func (c Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.Mongo.URI == "" {
		errs = append(errs, errors.New("MONGO_URI is required"))
	}
	if c.OpenAI.APIKey == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY is required"))
	}
	if c.Vapi.APIKey == "" {
		errs = append(errs, errors.New("VAPI_API_KEY is required"))
	}
	if c.Vapi.AssistantID == "" {
		errs = append(errs, errors.New("VAPI_ASSISTANT_ID is required"))
	}
	if c.Vapi.SecretToken == "" {
		errs = append(errs, errors.New("VAPI_SECRET_TOKEN is required"))
	}

	return joinErrors(errs)
}

func (c *Config) applyDefaults() {
	if c.Mongo.Database == "" {
		c.Mongo.Database = defaultMongoDatabase
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = defaultOpenAIModel
	}
	// Vapi.BaseURL stays empty here; the client applies its own default so
	// tests can point it at a local server.
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
