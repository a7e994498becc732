package config

import (
	"fmt"
	"log"
	"os"
	"snapfix/internal/domain"
	"snapfix/internal/routing"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const defaultExternalHTTPTimeout = 90 * time.Second
const defaultExternalHTTPTimeoutSeconds = int(defaultExternalHTTPTimeout / time.Second)

type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	GinMode    string `yaml:"gin_mode"`
	DBPath     string `yaml:"db_path"`
	Timezone   string `yaml:"timezone"`

	Labels      []string          `yaml:"labels"`
	Departments map[string]string `yaml:"departments"`

	ImageClassifierURL string `yaml:"image_classifier_url"`
	TextClassifier     string `yaml:"text_classifier"`
	TextClassifierURL  string `yaml:"text_classifier_url"`
	LLMModel           string `yaml:"llm_model"`
	AnthropicAPIKey    string `yaml:"anthropic_api_key"`
	OpenAIAPIKey       string `yaml:"openai_api_key"`
	GlossaryPath       string `yaml:"glossary_path"`

	ExternalHTTPTimeoutSeconds int `yaml:"external_http_timeout_seconds"`

	Notifier             string `yaml:"notifier"`
	TelegramBotToken     string `yaml:"telegram_bot_token"`
	SlackBotToken        string `yaml:"slack_bot_token"`
	NotifyTimeoutSeconds int    `yaml:"notify_timeout_seconds"`

	DigestChannelID     string `yaml:"digest_channel_id"`
	DigestSchedule      string `yaml:"digest_schedule"`
	DigestSkipEmpty     bool   `yaml:"digest_skip_empty"`
	OutboxSweepSchedule string `yaml:"outbox_sweep_schedule"`

	Location *time.Location `yaml:"-"` // computed from Timezone, not from YAML
	Registry domain.Labels  `yaml:"-"` // validated Labels
}

func LoadConfig() Config {
	var cfg Config

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	envOverride(&cfg.ListenAddr, "LISTEN_ADDR")
	envOverride(&cfg.GinMode, "GIN_MODE")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.Timezone, "TIMEZONE")
	envOverrideAllowEmpty(&cfg.ImageClassifierURL, "IMAGE_CLASSIFIER_URL")
	envOverride(&cfg.TextClassifier, "TEXT_CLASSIFIER")
	envOverride(&cfg.TextClassifierURL, "TEXT_CLASSIFIER_URL")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	envOverride(&cfg.GlossaryPath, "GLOSSARY_PATH")
	envOverrideInt(&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS")
	envOverride(&cfg.Notifier, "NOTIFIER")
	envOverride(&cfg.TelegramBotToken, "TELEGRAM_BOT_TOKEN")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverrideInt(&cfg.NotifyTimeoutSeconds, "NOTIFY_TIMEOUT_SECONDS")
	envOverrideAllowEmpty(&cfg.DigestChannelID, "DIGEST_CHANNEL_ID")
	envOverride(&cfg.DigestSchedule, "DIGEST_SCHEDULE")
	envOverrideBool(&cfg.DigestSkipEmpty, "DIGEST_SKIP_EMPTY")
	envOverride(&cfg.OutboxSweepSchedule, "OUTBOX_SWEEP_SCHEDULE")

	if labels := os.Getenv("LABELS"); labels != "" {
		cfg.Labels = nil
		for _, l := range strings.Split(labels, ",") {
			l = strings.TrimSpace(l)
			if l != "" {
				cfg.Labels = append(cfg.Labels, l)
			}
		}
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.GinMode == "" {
		cfg.GinMode = "release"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./snapfix.db"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}
	if len(cfg.Labels) == 0 {
		cfg.Labels = append([]string(nil), domain.DefaultLabels...)
	}
	if len(cfg.Departments) == 0 {
		cfg.Departments = make(map[string]string, len(routing.DefaultDepartments))
		for label, dept := range routing.DefaultDepartments {
			cfg.Departments[label] = dept
		}
	}
	if cfg.TextClassifier == "" {
		cfg.TextClassifier = "modelserver"
	}
	if cfg.ExternalHTTPTimeoutSeconds == 0 {
		cfg.ExternalHTTPTimeoutSeconds = defaultExternalHTTPTimeoutSeconds
	}
	if cfg.Notifier == "" {
		cfg.Notifier = "log"
	}
	if cfg.NotifyTimeoutSeconds == 0 {
		cfg.NotifyTimeoutSeconds = 10
	}
	if cfg.DigestSchedule == "" {
		cfg.DigestSchedule = "0 9 * * 1-5"
	}
	if cfg.OutboxSweepSchedule == "" {
		cfg.OutboxSweepSchedule = "*/5 * * * *"
	}

	registry, err := domain.NewLabels(cfg.Labels)
	if err != nil {
		log.Fatalf("invalid labels: %v", err)
	}
	cfg.Registry = registry

	for label, dept := range cfg.Departments {
		if strings.TrimSpace(label) == "" || strings.TrimSpace(dept) == "" {
			log.Fatalf("invalid departments entry '%s: %s': label and department are required", label, dept)
		}
	}

	switch cfg.TextClassifier {
	case "modelserver":
		if cfg.TextClassifierURL == "" {
			log.Fatalf("text_classifier_url is required when text_classifier=modelserver")
		}
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			log.Fatalf("anthropic_api_key is required when text_classifier=anthropic")
		}
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			log.Fatalf("openai_api_key is required when text_classifier=openai")
		}
	case "glossary":
		if cfg.GlossaryPath == "" {
			log.Fatalf("glossary_path is required when text_classifier=glossary")
		}
	default:
		log.Fatalf("text_classifier must be 'modelserver', 'anthropic', 'openai' or 'glossary', got '%s'", cfg.TextClassifier)
	}

	if cfg.ImageClassifierURL == "" {
		log.Printf("WARNING: image_classifier_url is not set. Photos will be ignored by /api/classify.")
	}

	switch cfg.Notifier {
	case "telegram":
		if cfg.TelegramBotToken == "" {
			log.Fatalf("telegram_bot_token is required when notifier=telegram")
		}
	case "slack":
		if cfg.SlackBotToken == "" {
			log.Fatalf("slack_bot_token is required when notifier=slack")
		}
	case "log":
	default:
		log.Fatalf("notifier must be 'telegram', 'slack' or 'log', got '%s'", cfg.Notifier)
	}

	if cfg.DigestChannelID != "" && cfg.SlackBotToken == "" {
		log.Fatalf("digest_channel_id is set but slack_bot_token is not")
	}

	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		log.Fatalf("gin_mode must be 'debug', 'release' or 'test', got '%s'", cfg.GinMode)
	}

	if strings.EqualFold(cfg.Timezone, "Local") {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			log.Fatalf("invalid timezone '%s': %v", cfg.Timezone, err)
		}
		cfg.Location = loc
	}

	if err := validateSchedule(cfg.DigestSchedule); err != nil {
		log.Fatalf("invalid digest_schedule '%s': %v", cfg.DigestSchedule, err)
	}
	if err := validateSchedule(cfg.OutboxSweepSchedule); err != nil {
		log.Fatalf("invalid outbox_sweep_schedule '%s': %v", cfg.OutboxSweepSchedule, err)
	}
	if cfg.ExternalHTTPTimeoutSeconds < 5 {
		log.Fatalf("invalid external_http_timeout_seconds '%d': must be >= 5", cfg.ExternalHTTPTimeoutSeconds)
	}
	if cfg.NotifyTimeoutSeconds < 1 {
		log.Fatalf("invalid notify_timeout_seconds '%d': must be >= 1", cfg.NotifyTimeoutSeconds)
	}
	if cfg.GlossaryPath != "" {
		if err := validateGlossaryPath(cfg.GlossaryPath); err != nil {
			log.Fatalf("invalid glossary_path '%s': %v", cfg.GlossaryPath, err)
		}
	}

	return cfg
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideAllowEmpty(field *string, envKey string) {
	if val, ok := os.LookupEnv(envKey); ok {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideBool(field *bool, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = strings.EqualFold(val, "true") || val == "1"
	}
}

func (c Config) NotifyTimeout() time.Duration {
	return time.Duration(c.NotifyTimeoutSeconds) * time.Second
}

func (c Config) DigestEnabled() bool {
	return c.DigestChannelID != "" && c.SlackBotToken != ""
}

func validateSchedule(spec string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	_, err := parser.Parse(spec)
	return err
}

func validateGlossaryPath(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read glossary: %w", err)
	}
	var g struct {
		Terms []struct {
			Label    string   `yaml:"label"`
			Keywords []string `yaml:"keywords"`
		} `yaml:"terms"`
	}
	if err := yaml.Unmarshal(data, &g); err != nil {
		return fmt.Errorf("parse glossary yaml: %w", err)
	}
	if len(g.Terms) == 0 {
		return fmt.Errorf("glossary has no terms")
	}
	return nil
}
