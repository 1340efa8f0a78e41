package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var servicesClear bool

var servicesCmd = &cobra.Command{
	Use:   "services NAME [SERVICE...]",
	Short: "Shows or replaces a profile's favorite services",
	Long: `Shows a profile's favorite services, or replaces the whole list when
services are given as arguments. --clear removes all of them.`,
	Args: cobra.MinimumNArgs(1),
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

		if servicesClear {
			if _, err := s.SetServices(p.ID, nil); err != nil {
				return err
			}
			fmt.Printf("Services cleared for %q\n", p.Name)
			return nil
		}

		if len(args) == 1 {
			if len(p.Services) == 0 {
				fmt.Println("No services configured")
				return nil
			}
			for _, svc := range p.Services {
				fmt.Println(svc)
			}
			return nil
		}

		updated, err := s.SetServices(p.ID, args[1:])
		if err != nil {
			return err
		}
		fmt.Printf("Services for %q: %s\n", updated.Name, strings.Join(updated.Services, ", "))
		return nil
	},
}

func init() {
	servicesCmd.Flags().BoolVar(&servicesClear, "clear", false, "Remove all services from the profile")
}
