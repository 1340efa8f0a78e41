package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hmori/sshvault/pkg/audit"
	"github.com/hmori/sshvault/pkg/vault"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit log operations",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verifies the audit log HMAC chain",
	Long: `Verifies the audit log HMAC chain. Unlocking the vault is required
because the chain key derives from the vault key.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.AuditLog {
			return fmt.Errorf("audit logging is not enabled (set audit_log: true in the config)")
		}

		logger, err := audit.Open(cfg.AuditPath())
		if err != nil {
			return err
		}
		defer logger.Close()

		passphrase, err := promptPassphrase("Enter master passphrase")
		if err != nil {
			return err
		}
		s, err := vault.Open(cfg.VaultPath, passphrase, vault.WithAudit(logger))
		if err != nil {
			return err
		}
		defer s.Close()

		result, err := logger.Verify()
		if err != nil {
			return err
		}
		if !result.Intact() {
			return fmt.Errorf("audit chain broken at event %d (%d events verified)", result.BrokenAt, result.Events)
		}
		fmt.Printf("Audit log verified: %d events, chain intact\n", result.Events)
		return nil
	},
}

func init() {
	auditCmd.AddCommand(auditVerifyCmd)
}
