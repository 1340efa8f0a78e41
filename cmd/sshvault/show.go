package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var showPassword bool

var showCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Shows a server profile",
	Long: `Shows a server profile's connection details. The password stays
hidden unless --show-password is given; revealing it is recorded in the
audit log when auditing is enabled.`,
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

		password := "[hidden]"
		if showPassword {
			full, err := s.Credentials(p.ID)
			if err != nil {
				return err
			}
			password = full.Password
		}

		fmt.Printf("Name:     %s\n", p.Name)
		fmt.Printf("Host:     %s\n", p.Host)
		fmt.Printf("Port:     %d\n", p.Port)
		fmt.Printf("Username: %s\n", p.Username)
		fmt.Printf("Password: %s\n", password)
		if len(p.Services) > 0 {
			fmt.Printf("Services: %s\n", strings.Join(p.Services, ", "))
		}
		fmt.Printf("Created:  %s\n", p.CreatedAt.Format(time.RFC3339))
		fmt.Printf("Updated:  %s\n", p.UpdatedAt.Format(time.RFC3339))
		return nil
	},
}

func init() {
	showCmd.Flags().BoolVar(&showPassword, "show-password", false, "Reveal the stored password")
}
