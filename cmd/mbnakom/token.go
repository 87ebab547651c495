package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/alecgard/mbnakom/internal/config"
	"github.com/alecgard/mbnakom/internal/token"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Work with session tokens",
}

var tokenInspectCmd = &cobra.Command{
	Use:   "inspect <jwt>",
	Short: "Decode a session token and print its claims",
	Long:  "Decodes a session token the way the server does. The signature is checked when auth.verify_key is configured.",
	Args:  cobra.ExactArgs(1),
	RunE:  runTokenInspect,
}

func init() {
	tokenCmd.AddCommand(tokenInspectCmd)
	rootCmd.AddCommand(tokenCmd)
}

func runTokenInspect(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	claims, err := token.NewDecoder(cfg.Auth.VerifyKey).Decode(args[0])
	if err != nil {
		return fmt.Errorf("decoding token: %w", err)
	}

	out := struct {
		*token.Claims
		Valid bool `json:"valid"`
	}{claims, claims.Valid(time.Now())}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
