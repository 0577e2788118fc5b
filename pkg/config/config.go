package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the YAML configuration for the relay server.
type Config struct {
	Server struct {
		Address string `yaml:"address"`
		Port    int    `yaml:"port"`
		DBPath  string `yaml:"db_path"`
		TLS     struct {
			CertFile string `yaml:"cert_file"`
			KeyFile  string `yaml:"key_file"`
		} `yaml:"tls"`
	} `yaml:"server"`
	Security struct {
		Encryption struct {
			// KeyHex is the 64-hex-char AES-256 key. KeyFile, when set,
			// wins over KeyHex (safer for orchestrators).
			KeyHex     string `yaml:"key_hex"`
			KeyFile    string `yaml:"key_file"`
			KeyVersion string `yaml:"key_version"`
		} `yaml:"encryption"`
		CORS struct {
			AllowedOrigins []string `yaml:"allowed_origins"`
		} `yaml:"cors"`
		RateLimit struct {
			RPS   float64 `yaml:"rps"`
			Burst int     `yaml:"burst"`
		} `yaml:"rate_limit"`
	} `yaml:"security"`
	Relay struct {
		// MaxMessageBytes caps a single submission; 0 means the default.
		MaxMessageBytes int `yaml:"max_message_bytes"`
	} `yaml:"relay"`
	Monitor struct {
		Enabled bool   `yaml:"enabled"`
		Cron    string `yaml:"cron"`
	} `yaml:"monitor"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // text|json
	} `yaml:"logging"`
}

// DefaultKeyHex is the demo key used when no key is configured: a static
// shared secret, fine for teaching, unacceptable anywhere else. Startup
// warns when it is in use.
const DefaultKeyHex = "63697068657272656c61792d64656d6f2d6b65792d646f2d6e6f742d73686970"

// Addr returns "address:port" for the HTTP listener.
func (c *Config) Addr() string {
	addr := c.Server.Address
	if c.Server.Port != 0 {
		return fmt.Sprintf("%s:%d", addr, c.Server.Port)
	}
	if addr != "" && strings.Contains(addr, ":") {
		return addr
	}
	if addr == "" {
		return ""
	}
	return addr + ":8080"
}

// KeyHex resolves the encryption key, preferring a key file over the
// embedded hex value. The second return reports whether the built-in demo
// key was used.
func (c *Config) KeyHex() (string, bool, error) {
	enc := c.Security.Encryption
	if f := strings.TrimSpace(enc.KeyFile); f != "" {
		b, err := os.ReadFile(f)
		if err != nil {
			return "", false, fmt.Errorf("failed to read key file %s: %w", f, err)
		}
		return strings.TrimSpace(string(b)), false, nil
	}
	if h := strings.TrimSpace(enc.KeyHex); h != "" {
		return h, false, nil
	}
	return DefaultKeyHex, true, nil
}

// Load reads and parses the YAML config at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return &c, nil
}

// ResolveConfigPath returns the config file path to use: an explicitly
// passed flag wins, then CIPHERRELAY_CONFIG, then the flag default.
func ResolveConfigPath(flagVal string, flagSet bool) string {
	if flagSet {
		return flagVal
	}
	if v := os.Getenv("CIPHERRELAY_CONFIG"); v != "" {
		return v
	}
	return flagVal
}
