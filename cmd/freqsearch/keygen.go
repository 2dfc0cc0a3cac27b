package main

import (
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/auth/apikey"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an API key for the index and cache mutation endpoints",
	Long: `Prints a new random key and its SHA-256 digest. Put the digest under
auth.adminKeyHashes (or SP_AUTH_ADMIN_KEY_HASHES) and hand the key to the
client, which sends it as "Authorization: Bearer <key>" or X-API-Key.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		raw, hash, err := apikey.Generate()
		if err != nil {
			return err
		}
		cmd.Printf("key:  %s\nhash: %s\n", raw, hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)
}
