// Package main manages ledger schemas and credential definitions through the
// issuer agent. It talks to the agent's admin API directly so schemas can be
// provisioned before the service starts.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"credon/internal/agent"
)

func main() {
	createCmd := flag.NewFlagSet("create", flag.ExitOnError)
	createURL := createCmd.String("agent-url", envOr("ISSUER_AGENT_URL", "http://localhost:11000"), "Issuer agent admin URL")
	createName := createCmd.String("name", "", "Schema name (required)")
	createVersion := createCmd.String("version", "", "Schema version. Randomized if empty.")
	createAttrs := createCmd.String("attributes", "", "Comma-separated attribute names (required)")
	createTag := createCmd.String("tag", "", "Credential definition tag. Derived from the name if empty.")
	createNoRevocation := createCmd.Bool("no-revocation", false, "Disable revocation support")
	createRegistrySize := createCmd.Int("registry-size", 1000, "Revocation registry size")

	listCmd := flag.NewFlagSet("list", flag.ExitOnError)
	listURL := listCmd.String("agent-url", envOr("ISSUER_AGENT_URL", "http://localhost:11000"), "Issuer agent admin URL")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	switch os.Args[1] {
	case "create":
		createCmd.Parse(os.Args[2:])
		attrs := splitList(*createAttrs)
		if *createName == "" || len(attrs) == 0 {
			fmt.Fprintln(os.Stderr, "schematool: -name and -attributes are required")
			os.Exit(1)
		}
		client := agent.New("issuer", *createURL, logger)
		create(ctx, client, *createName, *createVersion, attrs, *createTag, !*createNoRevocation, *createRegistrySize)
	case "list":
		listCmd.Parse(os.Args[2:])
		client := agent.New("issuer", *listURL, logger)
		list(ctx, client)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func create(ctx context.Context, client *agent.Client, name, version string, attrs []string, tag string, supportRevocation bool, registrySize int) {
	if version == "" {
		version = fmt.Sprintf("%d.%d.%d", rand.IntN(100), rand.IntN(100), rand.IntN(100))
	}
	if tag == "" {
		tag = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
	}

	schemaID, err := client.CreateSchema(ctx, name, version, attrs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating schema: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Schema ID:   %s\n", schemaID)

	credDefID, err := client.CreateCredentialDefinition(ctx, schemaID, tag, supportRevocation, registrySize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating credential definition: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Cred Def ID: %s\n", credDefID)
	fmt.Println()
	fmt.Println("Export before starting the server:")
	fmt.Printf("  export SCHEMA_ID=%q\n", schemaID)
	fmt.Printf("  export CRED_DEF_ID=%q\n", credDefID)
}

func list(ctx context.Context, client *agent.Client) {
	schemas, err := client.ListSchemas(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing schemas: %v\n", err)
		os.Exit(1)
	}
	credDefs, err := client.ListCredentialDefinitions(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing credential definitions: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Schemas:")
	for _, id := range schemas {
		fmt.Printf("  %s\n", id)
	}
	fmt.Println("Credential Definitions:")
	for _, id := range credDefs {
		fmt.Printf("  %s\n", id)
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printUsage() {
	fmt.Println(`schematool - Manage ledger schemas through the issuer agent

Usage:
  schematool <command> [flags]

Commands:
  create    Register a schema and publish its credential definition
  list      List schemas and credential definitions created by the agent

Examples:
  # Register a membership schema with three attributes
  schematool create -name "member card" -attributes "email,name,member_since"

  # Register without revocation support
  schematool create -name "member card" -attributes "email" -no-revocation

  # List what the agent has published
  schematool list

Use "schematool <command> -h" for more information about a command.`)
}
