package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hmori/sshvault/pkg/vault"
)

var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Changes the master passphrase",
	Long: `Changes the master passphrase. The vault is re-encrypted under a new
key with a fresh salt; the old passphrase stops working immediately.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, cleanup, err := openSession()
		if err != nil {
			return err
		}
		defer cleanup()

		current, err := promptPassphrase("Current master passphrase")
		if err != nil {
			return err
		}
		next1, err := promptPassphrase("New master passphrase")
		if err != nil {
			return err
		}
		next2, err := promptPassphrase("Confirm new master passphrase")
		if err != nil {
			return err
		}
		if next1 != next2 {
			return fmt.Errorf("passphrases do not match")
		}

		validation := vault.ValidatePassphrase(next1)
		if !validation.Valid {
			return fmt.Errorf("passphrase rejected: %s", validation.Warnings[0])
		}
		fmt.Printf("New passphrase strength: %s\n", validation.Strength)
		for _, w := range validation.Warnings {
			fmt.Printf("Warning: %s\n", w)
		}

		if err := s.ChangePassphrase(current, next1); err != nil {
			return err
		}
		fmt.Println("Master passphrase changed")
		return nil
	},
}
