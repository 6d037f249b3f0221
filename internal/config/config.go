package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Client types supported for MCP server connections.
const (
	ClientTypeSSE            = "sse"
	ClientTypeStreamableHTTP = "streamable_http"
	ClientTypeStdio          = "stdio"
)

// History backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// ErrMissingAPIKey is returned by Validate when no LLM API key is configured.
var ErrMissingAPIKey = errors.New("llm.api_key is required (set LLM_API_KEY)")

// Config holds the application configuration
type Config struct {
	LLM        LLMConfig
	Server     ServerConfig
	Log        LogConfig
	History    HistoryConfig
	Research   ResearchConfig
	MCPServers []MCPServerConfig `mapstructure:"mcp_servers"`
}

// LLMConfig holds the LLM configuration
type LLMConfig struct {
	Provider      string        `mapstructure:"provider"`
	BaseURL       string        `mapstructure:"base_url"`
	APIKey        string        `mapstructure:"api_key"`
	Model         string        `mapstructure:"model"`
	ResearchModel string        `mapstructure:"research_model"`
	Temperature   float32       `mapstructure:"temperature"`
	MaxTokens     int           `mapstructure:"max_tokens"`
	SystemPrompt  string        `mapstructure:"system_prompt"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// ServerConfig holds the server configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         string `mapstructure:"port"`
	EnforceHTTPS bool   `mapstructure:"enforce_https"`
}

// LogConfig holds the logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// HistoryConfig selects where conversation sessions live.
type HistoryConfig struct {
	Backend string `mapstructure:"backend"`
	DBPath  string `mapstructure:"db_path"`
}

// ResearchConfig holds the research agent configuration
type ResearchConfig struct {
	MaxTurns     int    `mapstructure:"max_turns"`
	OutputFile   string `mapstructure:"output_file"`
	SearchURL    string `mapstructure:"search_url"`
	WikipediaURL string `mapstructure:"wikipedia_url"`
	SystemPrompt string `mapstructure:"system_prompt"`
}

// MCPServerConfig describes one MCP server whose tools are offered to the
// research agent.
type MCPServerConfig struct {
	Name    string            `mapstructure:"name"`
	Type    string            `mapstructure:"type"`
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
	Command string            `mapstructure:"command"`
	Args    []string          `mapstructure:"args"`
	Env     map[string]string `mapstructure:"env"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.research_model", "")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.system_prompt", "")
	v.SetDefault("llm.timeout", 60*time.Second)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "5000")
	v.SetDefault("server.enforce_https", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "app.log")

	v.SetDefault("history.backend", BackendMemory)
	v.SetDefault("history.db_path", "history.db")

	v.SetDefault("research.max_turns", 5)
	v.SetDefault("research.output_file", "research_output.txt")
	v.SetDefault("research.search_url", "https://html.duckduckgo.com/html/")
	v.SetDefault("research.wikipedia_url", "https://en.wikipedia.org/w/api.php")
	v.SetDefault("research.system_prompt", "")
}

// Load loads the configuration from CONFIG_PATH (or ./config.yaml when unset),
// a .env file in the working directory and the environment. Every key has a
// default, so a missing config file is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config.LLM.APIKey == "" {
		config.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if config.LLM.ResearchModel == "" {
		config.LLM.ResearchModel = config.LLM.Model
	}

	return &config, nil
}

// Validate reports configuration that would make the service unusable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return ErrMissingAPIKey
	}
	switch c.History.Backend {
	case BackendMemory, BackendSQLite:
	default:
		return errors.New("history.backend must be 'memory' or 'sqlite'")
	}
	return nil
}
