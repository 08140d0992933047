package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the full service configuration, loaded from a YAML file with
// environment variable overrides for secrets and deploy-specific values.
type Config struct {
	Server     ServerConfig      `mapstructure:"server"`
	Logging    LoggingConfig     `mapstructure:"logging"`
	Models     ModelsConfig      `mapstructure:"models"`
	Search     SearchConfig      `mapstructure:"search"`
	Knowledge  KnowledgeConfig   `mapstructure:"knowledge"`
	Researcher ResearcherConfig  `mapstructure:"researcher"`
	Matcher    MatcherConfig     `mapstructure:"matcher"`
	Assistant  AssistantConfig   `mapstructure:"assistant"`
	Categorize CategorizerConfig `mapstructure:"categorizer"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// ModelConfig identifies one inference backend endpoint.
type ModelConfig struct {
	Name      string `mapstructure:"name"`
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

type ModelsConfig struct {
	Research  ModelConfig `mapstructure:"research"`
	Summarize ModelConfig `mapstructure:"summarize"`
	Assistant ModelConfig `mapstructure:"assistant"`
}

type SearchConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type KnowledgeConfig struct {
	Path string `mapstructure:"path"`
}

type ResearcherConfig struct {
	QuestionsPath    string        `mapstructure:"questions_path"`
	MaxIterations    int           `mapstructure:"max_iterations"`
	MaxSearchQueries int           `mapstructure:"max_search_queries"`
	MaxSearchResults int           `mapstructure:"max_search_results"`
	MaxConcurrent    int           `mapstructure:"max_concurrent"`
	MaxTraceChars    int           `mapstructure:"max_trace_chars"`
	JoinTimeout      time.Duration `mapstructure:"join_timeout"`
}

type MatcherConfig struct {
	MaxIterations    int `mapstructure:"max_iterations"`
	MaxSearchQueries int `mapstructure:"max_search_queries"`
	MaxSearchResults int `mapstructure:"max_search_results"`
	MaxSuggestions   int `mapstructure:"max_suggestions"`
}

type CategorizerConfig struct {
	MaxIterations    int `mapstructure:"max_iterations"`
	MaxSearchQueries int `mapstructure:"max_search_queries"`
	MaxSearchResults int `mapstructure:"max_search_results"`
}

type AssistantConfig struct {
	MaxIterations      int           `mapstructure:"max_iterations"`
	MaxKnowledgeChunks int           `mapstructure:"max_knowledge_chunks"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
}

// Load reads the config file at path and applies env overrides for secrets.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Secrets come from the environment, never from the file.
	bindEnv(v, "models.research.api_key", "OPENAI_API_KEY")
	bindEnv(v, "models.summarize.api_key", "OPENAI_API_KEY")
	bindEnv(v, "models.assistant.api_key", "OPENAI_API_KEY")
	bindEnv(v, "models.research.base_url", "OPENAI_BASE_URL")
	bindEnv(v, "models.summarize.base_url", "OPENAI_BASE_URL")
	bindEnv(v, "models.assistant.base_url", "OPENAI_BASE_URL")
	bindEnv(v, "search.api_key", "TAVILY_API_KEY")
	bindEnv(v, "server.addr", "LISTEN_ADDR")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func bindEnv(v *viper.Viper, key, env string) {
	_ = v.BindEnv(key, env)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8001")
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.pretty", false)

	v.SetDefault("models.research.name", "deepseek-chat")
	v.SetDefault("models.research.max_tokens", 4000)
	v.SetDefault("models.summarize.name", "deepseek-chat")
	v.SetDefault("models.summarize.max_tokens", 500)
	v.SetDefault("models.assistant.name", "deepseek-chat")
	v.SetDefault("models.assistant.max_tokens", 4000)

	v.SetDefault("search.base_url", "https://api.tavily.com")
	v.SetDefault("search.timeout", 30*time.Second)

	v.SetDefault("knowledge.path", "config/dsa_chunks.json")

	v.SetDefault("researcher.questions_path", "config/questions.yaml")
	v.SetDefault("researcher.max_iterations", 3)
	v.SetDefault("researcher.max_search_queries", 2)
	v.SetDefault("researcher.max_search_results", 10)
	v.SetDefault("researcher.max_concurrent", 17)
	v.SetDefault("researcher.max_trace_chars", 400000)
	v.SetDefault("researcher.join_timeout", 5*time.Minute)

	v.SetDefault("matcher.max_iterations", 1)
	v.SetDefault("matcher.max_search_queries", 5)
	v.SetDefault("matcher.max_search_results", 10)
	v.SetDefault("matcher.max_suggestions", 3)

	v.SetDefault("categorizer.max_iterations", 2)
	v.SetDefault("categorizer.max_search_queries", 3)
	v.SetDefault("categorizer.max_search_results", 5)

	v.SetDefault("assistant.max_iterations", 10)
	v.SetDefault("assistant.max_knowledge_chunks", 5)
	v.SetDefault("assistant.request_timeout", 5*time.Minute)
}

func (c *Config) validate() error {
	if c.Researcher.MaxIterations < 1 {
		return fmt.Errorf("researcher.max_iterations must be >= 1, got %d", c.Researcher.MaxIterations)
	}
	if c.Researcher.MaxConcurrent < 1 {
		return fmt.Errorf("researcher.max_concurrent must be >= 1, got %d", c.Researcher.MaxConcurrent)
	}
	if c.Researcher.MaxSearchQueries < 1 {
		return fmt.Errorf("researcher.max_search_queries must be >= 1, got %d", c.Researcher.MaxSearchQueries)
	}
	if c.Researcher.JoinTimeout <= 0 {
		return fmt.Errorf("researcher.join_timeout must be positive, got %s", c.Researcher.JoinTimeout)
	}
	return nil
}
