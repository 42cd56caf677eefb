// Command token mints a member access token for local testing and for
// operators onboarding a chat-front-end account.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"smmwallet/internal/auth"
	"smmwallet/internal/domain"
	"smmwallet/pkg/config"
	"smmwallet/pkg/logger"
)

func main() {
	account := flag.String("account", "", "member account id")
	flag.Parse()

	cfg := config.Load()
	log := logger.NewWithLevel("smm-token", logger.ParseLevel(cfg.Log.Level))

	if cfg.JWT.Secret == "" {
		log.Fatal("JWT_SECRET is required", nil)
	}
	if *account == "" {
		fmt.Fprintln(os.Stderr, "usage: token -account ID")
		os.Exit(2)
	}

	issued, err := auth.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.Expiry).Issue(domain.AccountID(*account))
	if err != nil {
		log.Fatal("Failed to issue token", map[string]interface{}{"error": err.Error()})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(issued); err != nil {
		log.Fatal("Failed to write token", map[string]interface{}{"error": err.Error()})
	}
}
