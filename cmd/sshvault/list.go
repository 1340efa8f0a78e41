package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hmori/sshvault/internal/cli"
)

var listCmd = &cobra.Command{
	Use:   "list [PATTERN]",
	Short: "Lists server profiles",
	Long: `Lists stored server profiles without passwords. An optional glob
pattern (e.g. "web*") filters by profile name.`,
	Args: cobra.MaximumNArgs(1),
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

		if len(args) == 1 {
			profiles, err = cli.FilterProfiles(profiles, args[0])
			if err != nil {
				return err
			}
		}

		if len(profiles) == 0 {
			fmt.Println("No profiles stored")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tHOST\tPORT\tUSERNAME\tSERVICES")
		for _, p := range profiles {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
				p.Name, p.Host, p.Port, p.Username, strings.Join(p.Services, ","))
		}
		return w.Flush()
	},
}
