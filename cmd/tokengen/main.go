// Package main provides a CLI tool for generating principal tokens for the
// Attesta registry API. These tokens use the dev signing key by default and
// will NOT work against a production deployment.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"attesta/internal/token"
	"attesta/pkg/domain"
)

const (
	// Dev signing key - matches config.go when JWT_SIGNING_KEY is not set
	devSigningKey = "dev-secret-key-change-in-production"

	defaultIssuer   = "attesta"
	defaultAudience = "attesta"
	defaultTokenTTL = 15 * time.Minute
)

type tokenOutput struct {
	Token     string            `json:"token"`
	Account   string            `json:"account"`
	ExpiresIn string            `json:"expires_in"`
	Usage     map[string]string `json:"usage"`
}

func main() {
	account := flag.String("account", "", "Account address the token authenticates (required)")
	signingKey := flag.String("key", devSigningKey, "JWT signing key; must match the server's JWT_SIGNING_KEY")
	ttl := flag.Duration("ttl", defaultTokenTTL, "Token time-to-live")
	jsonOutput := flag.Bool("json", false, "Output as JSON")
	flag.Usage = printUsage
	flag.Parse()

	address, err := domain.ParseAddress(*account)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid account: %v\n\n", err)
		printUsage()
		os.Exit(1)
	}

	svc := token.NewService(*signingKey, defaultIssuer, defaultAudience, *ttl)
	signed, err := svc.Generate(address)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}

	if *jsonOutput {
		printJSON(tokenOutput{
			Token:     signed,
			Account:   address.String(),
			ExpiresIn: ttl.String(),
			Usage: map[string]string{
				"header": "Authorization: Bearer <token>",
			},
		})
		return
	}

	fmt.Println("Principal Token (JWT)")
	fmt.Println("=====================")
	fmt.Printf("Account:    %s\n", address)
	fmt.Printf("Expires In: %s\n", ttl)
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(signed)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  curl -H \"Authorization: Bearer <token>\" http://localhost:8080/registry/...")
}

func printUsage() {
	fmt.Println(`tokengen - Generate principal tokens for the Attesta registry API

WARNING: The default signing key is for local development only.

Usage:
  tokengen -account <address> [flags]

Examples:
  # Token for the default bootstrap administrator
  tokengen -account 0xregistry-admin

  # Token for an issuing institution, valid for one hour
  tokengen -account 0xuniversity -ttl 1h

  # Output as JSON
  tokengen -account 0xuniversity -json`)
	fmt.Println()
	flag.PrintDefaults()
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}
