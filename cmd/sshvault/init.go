package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hmori/sshvault/pkg/vault"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Creates a new vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		if vault.Exists(cfg.VaultPath) {
			return fmt.Errorf("vault already exists at %s", cfg.VaultPath)
		}

		fmt.Printf("Creating vault at %s\n", cfg.VaultPath)

		passphrase1, err := promptPassphrase("Enter master passphrase")
		if err != nil {
			return err
		}
		passphrase2, err := promptPassphrase("Confirm master passphrase")
		if err != nil {
			return err
		}
		if passphrase1 != passphrase2 {
			return fmt.Errorf("passphrases do not match")
		}

		validation := vault.ValidatePassphrase(passphrase1)
		if !validation.Valid {
			return fmt.Errorf("passphrase rejected: %s", validation.Warnings[0])
		}
		fmt.Printf("Passphrase strength: %s\n", validation.Strength)
		for _, w := range validation.Warnings {
			fmt.Printf("Warning: %s\n", w)
		}

		opts, logger, err := sessionOptions()
		if err != nil {
			return err
		}
		if logger != nil {
			defer logger.Close()
		}
		opts = append(opts, vault.WithKDFParams(cfg.KDFParams()))

		s, err := vault.Create(cfg.VaultPath, passphrase1, opts...)
		if err != nil {
			return err
		}
		defer s.Close()

		fmt.Println("Vault created. A forgotten passphrase cannot be recovered.")
		return nil
	},
}
