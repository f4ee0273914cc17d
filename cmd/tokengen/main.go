// Package main mints admin bearer tokens for the credon API. Tokens signed
// with the dev key will NOT be accepted by a production deployment.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"credon/internal/admintoken"
)

const (
	// Dev signing key, matches config.go when ADMIN_SIGNING_KEY is not set.
	devSigningKey = "dev-secret-key-change-in-production"

	defaultTTL = 24 * time.Hour
)

type tokenOutput struct {
	Token     string            `json:"token"`
	Operator  string            `json:"operator"`
	ExpiresIn string            `json:"expires_in"`
	Usage     map[string]string `json:"usage"`
}

func main() {
	operator := flag.String("operator", "", "Operator name recorded in the audit trail (required)")
	key := flag.String("key", "", "Signing key. Defaults to the dev key.")
	ttl := flag.Duration("ttl", defaultTTL, "Token time-to-live")
	jsonOutput := flag.Bool("json", false, "Output as JSON")
	flag.Parse()

	if *operator == "" {
		fmt.Fprintln(os.Stderr, "tokengen: -operator is required")
		flag.Usage()
		os.Exit(1)
	}

	signingKey := *key
	keyType := "custom"
	if signingKey == "" {
		signingKey = devSigningKey
		keyType = "dev"
	}

	svc := admintoken.NewService(signingKey, *ttl)
	token, err := svc.Issue(*operator)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}

	if *jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(tokenOutput{
			Token:     token,
			Operator:  *operator,
			ExpiresIn: ttl.String(),
			Usage: map[string]string{
				"header":      "Authorization: Bearer <token>",
				"signing_key": keyType,
			},
		}); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Println("Admin Token (JWT)")
	fmt.Println("=================")
	fmt.Printf("Signing Key: %s\n", keyType)
	fmt.Printf("Operator:    %s\n", *operator)
	fmt.Printf("Expires In:  %s\n", ttl)
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(token)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  curl -H \"Authorization: Bearer <token>\" http://localhost:8080/admin/...")
}
