package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "mbnakom",
	Short: "Mbnakom construction company website",
	Long:  "Mbnakom serves the bilingual (English/Arabic) company website: marketing pages, contact and appointment forms, user accounts and the admin dashboard, backed by the Mbnakom API.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (optional; env vars and .env apply either way)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
