package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"intentgate/internal/domain"
)

// BackendConfig describes how to reach one capability backend.
// Endpoints maps an action name (e.g. "createRepo") to a path on BaseURL.
type BackendConfig struct {
	ID         string            `toml:"id"`
	BaseURL    string            `toml:"base_url"`
	StatusPath string            `toml:"status_path,omitempty"`
	Endpoints  map[string]string `toml:"endpoints,omitempty"`
}

func (b BackendConfig) StatusURL() string {
	path := b.StatusPath
	if path == "" {
		path = "/status"
	}
	return joinURL(b.BaseURL, path)
}

func (b BackendConfig) EndpointURL(action string) (string, bool) {
	path, ok := b.Endpoints[action]
	if !ok || strings.TrimSpace(path) == "" {
		return "", false
	}
	return joinURL(b.BaseURL, path), true
}

type backendsFile struct {
	Backends []BackendConfig `toml:"backend"`
}

type ServerConfig struct {
	HTTPAddr          string
	CORSAllowedOrigin string
	LLMProvider       string
	LLMModel          string
	LLMTemperature    float64
	GeminiBaseURL     string
	GeminiAPIKey      string
	OpenAIBaseURL     string
	OpenAIAPIKey      string
	AnthropicBaseURL  string
	AnthropicAPIKey   string
	ProbeTimeout      time.Duration
	ModelTimeout      time.Duration
	DispatchTimeout   time.Duration
	CloneDefaultDir   string
	Backends          []BackendConfig
	DBDSN             string
	MQTTBrokerURL     string
	MQTTClientID      string
	MQTTUsername      string
	MQTTPassword      string
	MQTTTopicPrefix   string

	CapabilityPublishInterval time.Duration
}

type ClientConfig struct {
	ServerURL string
	Token     string
	Timeout   time.Duration
}

func LoadServerConfig() (ServerConfig, error) {
	cfg := ServerConfig{
		HTTPAddr:          getenvDefault("INTENTGATE_HTTP_ADDR", ":4000"),
		CORSAllowedOrigin: getenvDefault("CORS_ALLOWED_ORIGIN", "http://localhost:5173"),
		LLMProvider:       strings.ToLower(getenvDefault("LLM_PROVIDER", "gemini")),
		LLMModel:          os.Getenv("LLM_MODEL"),
		LLMTemperature:    getenvFloatDefault("LLM_TEMPERATURE", 0.1),
		GeminiBaseURL:     getenvDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		OpenAIBaseURL:     getenvDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		AnthropicBaseURL:  getenvDefault("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
		AnthropicAPIKey:   os.Getenv("ANTHROPIC_API_KEY"),
		ProbeTimeout:      time.Duration(getenvIntDefault("PROBE_TIMEOUT_MS", 1500)) * time.Millisecond,
		ModelTimeout:      time.Duration(getenvIntDefault("MODEL_TIMEOUT_SECONDS", 30)) * time.Second,
		DispatchTimeout:   time.Duration(getenvIntDefault("DISPATCH_TIMEOUT_SECONDS", 60)) * time.Second,
		CloneDefaultDir:   getenvDefault("CLONE_DEFAULT_DIR", "./repos"),
		DBDSN:             os.Getenv("DB_DSN"),
		MQTTBrokerURL:     os.Getenv("MQTT_BROKER_URL"),
		MQTTClientID:      getenvDefault("MQTT_CLIENT_ID", "intentgate"),
		MQTTUsername:      os.Getenv("MQTT_USERNAME"),
		MQTTPassword:      os.Getenv("MQTT_PASSWORD"),
		MQTTTopicPrefix:   getenvDefault("MQTT_TOPIC_PREFIX", "intentgate"),

		CapabilityPublishInterval: time.Duration(getenvIntDefault("CAPABILITY_PUBLISH_INTERVAL_SECONDS", 30)) * time.Second,
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = DefaultModel(cfg.LLMProvider)
	}

	backends := DefaultBackends(
		getenvDefault("SOURCE_CONTROL_URL", "http://localhost:4001"),
		getenvDefault("CONTAINER_RUNTIME_URL", "http://localhost:4002"),
	)
	if path := os.Getenv("BACKENDS_FILE"); path != "" {
		fromFile, err := LoadBackendsFile(path)
		if err != nil {
			return ServerConfig{}, err
		}
		backends = MergeBackends(backends, fromFile)
	}
	cfg.Backends = backends

	switch cfg.LLMProvider {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return ServerConfig{}, fmt.Errorf("GEMINI_API_KEY is required when LLM_PROVIDER=gemini")
		}
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return ServerConfig{}, fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
		}
	case "claude":
		if cfg.AnthropicAPIKey == "" {
			return ServerConfig{}, fmt.Errorf("ANTHROPIC_API_KEY is required when LLM_PROVIDER=claude")
		}
	default:
		return ServerConfig{}, fmt.Errorf("unsupported LLM_PROVIDER: %s", cfg.LLMProvider)
	}
	if cfg.LLMTemperature < 0 || cfg.LLMTemperature > 2 {
		return ServerConfig{}, fmt.Errorf("LLM_TEMPERATURE must be within [0, 2]")
	}
	if err := ValidateBackends(cfg.Backends); err != nil {
		return ServerConfig{}, err
	}

	return cfg, nil
}

func LoadClientConfig() ClientConfig {
	return ClientConfig{
		ServerURL: strings.TrimRight(getenvDefault("INTENTGATE_URL", "http://localhost:4000"), "/"),
		Token:     os.Getenv("INTENTGATE_TOKEN"),
		Timeout:   time.Duration(getenvIntDefault("INTENTGATE_CLIENT_TIMEOUT_SECONDS", 120)) * time.Second,
	}
}

func DefaultModel(provider string) string {
	switch provider {
	case "openai":
		return "gpt-4o-mini"
	case "claude":
		return "claude-3-5-haiku-latest"
	default:
		return "gemini-2.5-flash"
	}
}

// DefaultBackends is the stock routing layout of the two known backends.
func DefaultBackends(sourceControlURL, containerRuntimeURL string) []BackendConfig {
	return []BackendConfig{
		{
			ID:         "source-control",
			BaseURL:    strings.TrimRight(sourceControlURL, "/"),
			StatusPath: "/status",
			Endpoints: map[string]string{
				"listRepos":  "/listRepos",
				"createRepo": "/createRepo",
				"cloneRepo":  "/cloneRepo",
			},
		},
		{
			ID:         "container-runtime",
			BaseURL:    strings.TrimRight(containerRuntimeURL, "/"),
			StatusPath: "/status",
			Endpoints: map[string]string{
				"dockerRun":   "/docker/exec",
				"dockerBuild": "/docker/exec",
			},
		},
	}
}

// LoadBackendsFile reads a TOML file of [[backend]] tables.
func LoadBackendsFile(path string) ([]BackendConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read backends file: %w", err)
	}
	var parsed backendsFile
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse backends file %s: %w", path, err)
	}
	for i := range parsed.Backends {
		parsed.Backends[i].ID = strings.TrimSpace(parsed.Backends[i].ID)
		parsed.Backends[i].BaseURL = strings.TrimRight(strings.TrimSpace(parsed.Backends[i].BaseURL), "/")
	}
	return parsed.Backends, nil
}

// MergeBackends overlays entries by ID. Non-empty override fields win and
// endpoint maps are merged key by key.
func MergeBackends(base, override []BackendConfig) []BackendConfig {
	out := make([]BackendConfig, 0, len(base)+len(override))
	index := make(map[string]int, len(base))
	for _, b := range base {
		index[b.ID] = len(out)
		out = append(out, cloneBackend(b))
	}
	for _, o := range override {
		i, ok := index[o.ID]
		if !ok {
			index[o.ID] = len(out)
			out = append(out, cloneBackend(o))
			continue
		}
		if o.BaseURL != "" {
			out[i].BaseURL = o.BaseURL
		}
		if o.StatusPath != "" {
			out[i].StatusPath = o.StatusPath
		}
		for action, path := range o.Endpoints {
			out[i].Endpoints[action] = path
		}
	}
	return out
}

func ValidateBackends(backends []BackendConfig) error {
	seen := map[string]bool{}
	for _, b := range backends {
		if b.ID == "" {
			return fmt.Errorf("backend id is required")
		}
		if !domain.CapabilityID(b.ID).IsValid() {
			return fmt.Errorf("backend %s: unknown capability", b.ID)
		}
		if b.BaseURL == "" {
			return fmt.Errorf("backend %s: base_url is required", b.ID)
		}
		seen[b.ID] = true
	}
	for _, required := range domain.AllCapabilities() {
		if !seen[required.String()] {
			return fmt.Errorf("backend %s is not configured", required)
		}
	}
	return nil
}

func cloneBackend(b BackendConfig) BackendConfig {
	out := b
	out.Endpoints = make(map[string]string, len(b.Endpoints))
	for k, v := range b.Endpoints {
		out.Endpoints[k] = v
	}
	return out
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

func getenvDefault(key, val string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return val
}

func getenvIntDefault(key string, val int) int {
	v := os.Getenv(key)
	if v == "" {
		return val
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return val
	}
	return n
}

func getenvFloatDefault(key string, val float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return val
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return val
	}
	return f
}
