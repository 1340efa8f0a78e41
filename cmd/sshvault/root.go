package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/hmori/sshvault/pkg/audit"
	"github.com/hmori/sshvault/pkg/config"
	"github.com/hmori/sshvault/pkg/crypto"
	"github.com/hmori/sshvault/pkg/vault"
)

var (
	flagConfig string
	flagVault  string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "sshvault",
	Short: "sshvault is a local encrypted store for SSH server profiles",
	Long: `sshvault keeps SSH server connection profiles (host, port, username,
password, favorite services) in a single encrypted file protected by a
master passphrase. Nothing ever leaves the machine.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := flagConfig
		if path == "" {
			path = config.DefaultPath()
		}
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return err
		}
		if flagVault != "" {
			cfg.VaultPath = flagVault
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default ~/.sshvault/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagVault, "vault", "", "Vault file path (overrides config)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(servicesCmd)
	rootCmd.AddCommand(passwdCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(auditCmd)
}

// promptPassphrase reads a passphrase without echo when stdin is a
// terminal, falling back to line input for piped use. The read buffer is
// wiped after conversion; the returned string itself is immutable and lives
// until the GC collects it.
func promptPassphrase(prompt string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", prompt)
	if term.IsTerminal(int(syscall.Stdin)) {
		b, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read passphrase: %w", err)
		}
		passphrase := string(b)
		crypto.SecureWipe(b)
		return passphrase, nil
	}
	return readLine()
}

// readLine reads one line from stdin, trimming the trailing newline.
func readLine() (string, error) {
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r"), nil
}

// promptLine prints a prompt and reads one line.
func promptLine(prompt string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", prompt)
	return readLine()
}

// sessionOptions builds vault options from the loaded config, opening the
// audit logger when enabled. The returned logger is nil when auditing is
// off.
func sessionOptions() ([]vault.Option, *audit.Logger, error) {
	var opts []vault.Option
	var logger *audit.Logger

	if cfg.AuditLog {
		var err error
		logger, err = audit.Open(cfg.AuditPath())
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, vault.WithAudit(logger))
	}
	if d := time.Duration(cfg.AutoLock); d > 0 {
		opts = append(opts, vault.WithAutoLock(d))
	}
	return opts, logger, nil
}

// openSession prompts for the master passphrase and unlocks the vault.
// The returned cleanup closes both the session and the audit logger.
func openSession() (*vault.Session, func(), error) {
	opts, logger, err := sessionOptions()
	if err != nil {
		return nil, nil, err
	}

	passphrase, err := promptPassphrase("Enter master passphrase")
	if err != nil {
		if logger != nil {
			logger.Close()
		}
		return nil, nil, err
	}

	s, err := vault.Open(cfg.VaultPath, passphrase, opts...)
	if err != nil {
		if logger != nil {
			logger.Close()
		}
		return nil, nil, err
	}

	cleanup := func() {
		s.Close()
		if logger != nil {
			logger.Close()
		}
	}
	return s, cleanup, nil
}
