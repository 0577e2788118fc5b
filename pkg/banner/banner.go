package banner

import (
	"fmt"

	"cipherrelay/pkg/config"
)

const banner = `
 ██████╗██╗██████╗ ██╗  ██╗███████╗██████╗ ██████╗ ███████╗██╗      █████╗ ██╗   ██╗
██╔════╝██║██╔══██╗██║  ██║██╔════╝██╔══██╗██╔══██╗██╔════╝██║     ██╔══██╗╚██╗ ██╔╝
██║     ██║██████╔╝███████║█████╗  ██████╔╝██████╔╝█████╗  ██║     ███████║ ╚████╔╝
██║     ██║██╔═══╝ ██╔══██║██╔══╝  ██╔══██╗██╔══██╗██╔══╝  ██║     ██╔══██║  ╚██╔╝
╚██████╗██║██║     ██║  ██║███████╗██║  ██║██║  ██║███████╗███████╗██║  ██║   ██║
 ╚═════╝╚═╝╚═╝     ╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝╚══════╝╚═╝  ╚═╝   ╚═╝
`

// Print writes the startup banner with the effective runtime config.
func Print(eff config.EffectiveConfigResult, version string, demoKey bool) {
	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", eff.Addr)
	fmt.Printf("DB Path:  %s\n", eff.DBPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	if eff.Source != "" {
		fmt.Printf("Config sources: %s\n", eff.Source)
	}
	if kv := eff.Config.Security.Encryption.KeyVersion; kv != "" {
		fmt.Printf("Key version: %s\n", kv)
	}
	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("GET  /ws - websocket: send {type:\"send_message\", text}; receive message/error events")
	fmt.Println("GET  /api/messages?limit=<n> - recent history, newest first (default 50)")
	fmt.Println("POST /api/visualize-encryption - {text} -> ordered encryption steps")
	fmt.Println("\n== Examples ===================================================")
	fmt.Printf("curl 'http://localhost%s/api/messages?limit=10'\n", eff.Addr)
	fmt.Printf("curl -X POST 'http://localhost%s/api/visualize-encryption' -d '{\"text\":\"hello\"}'\n", eff.Addr)
	fmt.Println("\n== Production? ================================================")
	fmt.Println("This is a teaching demo: plaintext is stored and broadcast next")
	fmt.Println("to its ciphertext on purpose. Do not deploy it as a messenger.")
	if demoKey {
		fmt.Println("WARNING: running with the built-in demo key; set security.encryption.key_hex")
	}
	fmt.Println()
}
