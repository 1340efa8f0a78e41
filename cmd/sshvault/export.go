package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	exportOutput           string
	exportIncludePasswords bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Exports profiles as YAML",
	Long: `Exports all profiles as YAML to stdout or a file. Passwords are
omitted unless --include-passwords is given; the output is plaintext, so
handle it accordingly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, cleanup, err := openSession()
		if err != nil {
			return err
		}
		defer cleanup()

		profiles, err := s.ListProfiles()
		if err != nil {
			return err
		}

		if exportIncludePasswords {
			for i := range profiles {
				full, err := s.Credentials(profiles[i].ID)
				if err != nil {
					return err
				}
				profiles[i].Password = full.Password
			}
		}

		type exportProfile struct {
			Name     string   `yaml:"name"`
			Host     string   `yaml:"host"`
			Port     int      `yaml:"port"`
			Username string   `yaml:"username"`
			Password string   `yaml:"password,omitempty"`
			Services []string `yaml:"services,omitempty"`
		}
		out := make([]exportProfile, len(profiles))
		for i, p := range profiles {
			out[i] = exportProfile{
				Name:     p.Name,
				Host:     p.Host,
				Port:     p.Port,
				Username: p.Username,
				Password: p.Password,
				Services: p.Services,
			}
		}

		data, err := yaml.Marshal(out)
		if err != nil {
			return fmt.Errorf("failed to marshal profiles: %w", err)
		}

		if exportOutput != "" {
			if err := os.WriteFile(exportOutput, data, 0600); err != nil {
				return fmt.Errorf("failed to write export file: %w", err)
			}
			if exportIncludePasswords {
				fmt.Fprintln(os.Stderr, "Warning: exported file contains plaintext passwords")
			}
			fmt.Fprintf(os.Stderr, "Exported %d profiles to %s\n", len(out), exportOutput)
			return nil
		}

		_, err = os.Stdout.Write(data)
		return err
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path (default: stdout)")
	exportCmd.Flags().BoolVar(&exportIncludePasswords, "include-passwords", false, "Include plaintext passwords in the export")
}
