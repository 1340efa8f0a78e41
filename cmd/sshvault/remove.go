package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var removeForce bool

var removeCmd = &cobra.Command{
	Use:   "remove NAME",
	Short: "Removes a server profile",
	Args:  cobra.ExactArgs(1),
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

		if !removeForce {
			fmt.Printf("Remove profile %q (%s@%s:%d)? [y/N]: ", p.Name, p.Username, p.Host, p.Port)
			var response string
			if _, err := fmt.Scanln(&response); err != nil {
				fmt.Println("Aborted")
				return nil
			}
			if response != "y" && response != "Y" {
				fmt.Println("Aborted")
				return nil
			}
		}

		if err := s.RemoveProfile(p.ID); err != nil {
			return err
		}
		fmt.Printf("Profile %q removed\n", p.Name)
		return nil
	},
}

func init() {
	removeCmd.Flags().BoolVarP(&removeForce, "force", "f", false, "Skip confirmation prompt")
}
