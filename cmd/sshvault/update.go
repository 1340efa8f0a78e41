package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hmori/sshvault/pkg/profile"
)

var (
	updateHost     string
	updatePort     int
	updateUsername string
	updatePassword bool
)

var updateCmd = &cobra.Command{
	Use:   "update NAME",
	Short: "Updates fields of a server profile",
	Long: `Updates fields of a server profile. Only the fields given as flags
change; --password prompts for the new password without echo.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, cleanup, err := openSession()
		if err != nil {
			return err
		}
		defer cleanup()

		p, err := s.GetProfileByName(args[0])
		if err != nil {
			return err
		}

		var ch profile.Changes
		if cmd.Flags().Changed("host") {
			ch.Host = &updateHost
		}
		if cmd.Flags().Changed("port") {
			ch.Port = &updatePort
		}
		if cmd.Flags().Changed("username") {
			ch.Username = &updateUsername
		}
		if updatePassword {
			password, err := promptPassphrase("New password")
			if err != nil {
				return err
			}
			ch.Password = &password
		}

		if ch == (profile.Changes{}) {
			return fmt.Errorf("nothing to update (use --host, --port, --username, or --password)")
		}

		updated, err := s.UpdateProfile(p.ID, ch)
		if err != nil {
			return err
		}

		fmt.Printf("Profile %q updated (%s@%s:%d)\n", updated.Name, updated.Username, updated.Host, updated.Port)
		return nil
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename NAME NEW_NAME",
	Short: "Renames a server profile",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, cleanup, err := openSession()
		if err != nil {
			return err
		}
		defer cleanup()

		p, err := s.GetProfileByName(args[0])
		if err != nil {
			return err
		}

		renamed, err := s.RenameProfile(p.ID, args[1])
		if err != nil {
			return err
		}

		fmt.Printf("Profile %q renamed to %q\n", args[0], renamed.Name)
		return nil
	},
}

func init() {
	updateCmd.Flags().StringVar(&updateHost, "host", "", "New hostname or IP address")
	updateCmd.Flags().IntVar(&updatePort, "port", 0, "New SSH port")
	updateCmd.Flags().StringVarP(&updateUsername, "username", "u", "", "New login username")
	updateCmd.Flags().BoolVar(&updatePassword, "password", false, "Prompt for a new password")
}
