package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hmori/sshvault/pkg/profile"
)

var (
	addHost     string
	addPort     int
	addUsername string
	addServices []string
)

var addCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Adds a server profile",
	Long: `Adds a server profile. Connection details not given as flags are
prompted interactively; the password is always prompted without echo.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		s, cleanup, err := openSession()
		if err != nil {
			return err
		}
		defer cleanup()

		host := addHost
		if host == "" {
			if host, err = promptLine("Host"); err != nil {
				return err
			}
		}

		port := addPort
		if port == 0 && !cmd.Flags().Changed("port") {
			line, err := promptLine(fmt.Sprintf("Port [%d]", profile.DefaultPort))
			if err != nil {
				return err
			}
			if line != "" {
				if port, err = strconv.Atoi(line); err != nil {
					return fmt.Errorf("invalid port %q", line)
				}
			}
		}

		username := addUsername
		if username == "" {
			if username, err = promptLine("Username"); err != nil {
				return err
			}
		}

		password, err := promptPassphrase("Password")
		if err != nil {
			return err
		}

		added, err := s.AddProfile(profile.ServerProfile{
			Name:     name,
			Host:     host,
			Port:     port,
			Username: username,
			Password: password,
			Services: addServices,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Profile %q added (%s@%s:%d)\n", added.Name, added.Username, added.Host, added.Port)
		if len(added.Services) > 0 {
			fmt.Printf("Services: %s\n", strings.Join(added.Services, ", "))
		}
		return nil
	},
}

func init() {
	addCmd.Flags().StringVar(&addHost, "host", "", "Server hostname or IP address")
	addCmd.Flags().IntVar(&addPort, "port", 0, "SSH port (default 22)")
	addCmd.Flags().StringVarP(&addUsername, "username", "u", "", "Login username")
	addCmd.Flags().StringSliceVar(&addServices, "service", nil, "Favorite service (can be repeated)")
}
