package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
		// PublicURL es la raíz pública del bridge, base de las capability
		// URLs y de los callbacks.
		PublicURL string `yaml:"public_url"`
	} `yaml:"server"`

	Cache struct {
		Kind  string `yaml:"kind"` // "memory" | "redis"
		Redis struct {
			Addr string `yaml:"addr"`
			DB   int    `yaml:"db"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	Storage struct {
		Driver string `yaml:"driver"` // "pg" | "memory"
		DSN    string `yaml:"dsn"`
	} `yaml:"storage"`

	OpenID struct {
		IssuerURL    string `yaml:"issuer_url"`
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		Timeout      string `yaml:"timeout"`
	} `yaml:"openid"`

	Login struct {
		// Issuer y Secret firman el session token del login response.
		Issuer          string `yaml:"issuer"`
		Secret          string `yaml:"secret"`
		SessionTokenTTL string `yaml:"session_token_ttl"`
		ExternalTimeout string `yaml:"external_timeout"`
	} `yaml:"login"`

	Capabilities struct {
		TTL string `yaml:"ttl"`
	} `yaml:"capabilities"`

	Cookies struct {
		Domain   string `yaml:"domain"`
		SameSite string `yaml:"samesite"`
		Secure   bool   `yaml:"secure"`
	} `yaml:"cookies"`

	// Services son los backend services a registrar al boot, en orden.
	// El orden del archivo define el orden de la negociación.
	Services []ServiceConfig `yaml:"services"`

	Admin struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"admin"`
}

type ServiceConfig struct {
	Identifier string `yaml:"identifier"`
	// Kind: "remote" (capabilities otorgadas vía intercambio de
	// autorización) o "local" (emitidas por el bridge al crear la sesión).
	Kind         string   `yaml:"kind"`
	Capabilities []string `yaml:"capabilities"`
	// Endpoints del intercambio, solo para kind remote.
	RequestURL   string `yaml:"request_url"`
	AuthorizeURL string `yaml:"authorize_url"`
	AccessURL    string `yaml:"access_url"`
	// Handlers locales por capability, solo para kind local.
	Handlers map[string]string `yaml:"handlers"`
}

// Load lee el YAML y aplica overrides de entorno.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Overrides de entorno (los secretos no van en YAML en prod)
	if v := os.Getenv("GRIDBRIDGE_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("GRIDBRIDGE_PUBLIC_URL"); v != "" {
		cfg.Server.PublicURL = v
	}
	if v := os.Getenv("GRIDBRIDGE_LOGIN_SECRET"); v != "" {
		cfg.Login.Secret = v
	}
	if v := os.Getenv("GRIDBRIDGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("GRIDBRIDGE_ADMIN_KEY"); v != "" {
		cfg.Admin.APIKey = v
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8083"
	}
	if cfg.Server.PublicURL == "" {
		cfg.Server.PublicURL = "http://localhost" + cfg.Server.Addr
	}
	cfg.Server.PublicURL = strings.TrimRight(cfg.Server.PublicURL, "/")

	return &cfg, nil
}

// ParseDuration parsea una duración en string con fallback.
func ParseDuration(s string, fallback time.Duration) time.Duration {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
