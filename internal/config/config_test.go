package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sampleConfig = `
llm:
  provider: openai
  base_url: https://api.example.com
  api_key: dummy
  model: gpt-4o
  temperature: 0.2
server:
  host: 127.0.0.1
  port: "8080"
history:
  backend: sqlite
  db_path: /tmp/sessions.db
research:
  max_turns: 3
mcp_servers:
  - name: local
    type: stdio
    command: ./mock
    args: ["--flag"]
    env:
      FOO: bar
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	tmp, err := os.CreateTemp(t.TempDir(), "cfg-*.yaml")
	require.NoError(t, err)
	_, err = tmp.WriteString(body)
	require.NoError(t, err)
	require.NoError(t, tmp.Close())
	return tmp.Name()
}

// TestLoad_File verifies that Load unmarshals every section from the YAML file.
func TestLoad_File(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_PATH", writeConfig(t, sampleConfig))

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "https://api.example.com", cfg.LLM.BaseURL)
	require.Equal(t, "dummy", cfg.LLM.APIKey)
	require.Equal(t, "gpt-4o", cfg.LLM.Model)
	require.Equal(t, "gpt-4o", cfg.LLM.ResearchModel, "research model falls back to the chat model")
	require.InDelta(t, 0.2, cfg.LLM.Temperature, 0.0001)
	require.Equal(t, 1024, cfg.LLM.MaxTokens)
	require.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	require.Equal(t, "127.0.0.1", cfg.Server.Host)
	require.Equal(t, "8080", cfg.Server.Port)
	require.Equal(t, BackendSQLite, cfg.History.Backend)
	require.Equal(t, 3, cfg.Research.MaxTurns)
	require.Equal(t, "research_output.txt", cfg.Research.OutputFile)

	require.Len(t, cfg.MCPServers, 1)
	s := cfg.MCPServers[0]
	require.Equal(t, ClientTypeStdio, s.Type)
	require.Equal(t, "./mock", s.Command)
	require.Equal(t, []string{"--flag"}, s.Args)
	require.Equal(t, "bar", s.Env["foo"])
	require.NoError(t, cfg.Validate())
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("LLM_API_KEY", "from-env")
	t.Setenv("SERVER_PORT", "9999")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.LLM.APIKey)
	require.Equal(t, "9999", cfg.Server.Port)
	require.Equal(t, BackendMemory, cfg.History.Backend)
	require.Equal(t, 5, cfg.Research.MaxTurns)
	require.Equal(t, "app.log", cfg.Log.File)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("LLM_API_KEY", "")
	require.NoError(t, os.WriteFile(".env", []byte("LLM_MODEL=from-dotenv\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("LLM_MODEL") })

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "from-dotenv", cfg.LLM.Model)
}

func TestValidate(t *testing.T) {
	cfg := &Config{History: HistoryConfig{Backend: BackendMemory}}
	require.ErrorIs(t, cfg.Validate(), ErrMissingAPIKey)

	cfg.LLM.APIKey = "k"
	require.NoError(t, cfg.Validate())

	cfg.History.Backend = "redis"
	require.Error(t, cfg.Validate())
}
