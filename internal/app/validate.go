package app

import (
	"encoding/hex"
	"fmt"
	"strings"

	"cipherrelay/pkg/config"
)

// validateConfig fails fast on configs that would only surface as runtime
// errors later.
func validateConfig(eff config.EffectiveConfigResult) error {
	if eff.Config == nil {
		return fmt.Errorf("no effective config")
	}
	if strings.TrimSpace(eff.Addr) == "" {
		return fmt.Errorf("listen address is empty; set --addr, server.address or CIPHERRELAY_ADDR")
	}
	if strings.TrimSpace(eff.DBPath) == "" {
		return fmt.Errorf("db path is empty; set --db, server.db_path or CIPHERRELAY_DB_PATH")
	}

	enc := eff.Config.Security.Encryption
	if h := strings.TrimSpace(enc.KeyHex); h != "" {
		b, err := hex.DecodeString(h)
		if err != nil || len(b) != 32 {
			return fmt.Errorf("security.encryption.key_hex must be 64 hex chars (32 bytes)")
		}
	}

	rl := eff.Config.Security.RateLimit
	if rl.RPS < 0 || rl.Burst < 0 {
		return fmt.Errorf("security.rate_limit values must not be negative")
	}
	if eff.Config.Relay.MaxMessageBytes < 0 {
		return fmt.Errorf("relay.max_message_bytes must not be negative")
	}

	tls := eff.Config.Server.TLS
	if (tls.CertFile == "") != (tls.KeyFile == "") {
		return fmt.Errorf("server.tls requires both cert_file and key_file")
	}
	return nil
}
