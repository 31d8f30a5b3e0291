package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dgallion1/modsearch/internal/store"
	"github.com/spf13/cobra"
)

func newModulesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "Print the module list saved by the last download",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := store.New(a.fs, a.cfg.OutputDir, a.cfg.ModuleListFilename)
			modules, err := st.ReadModuleList()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tID")
			for _, m := range modules {
				fmt.Fprintf(tw, "%s\t%s\n", m.Name, m.ID)
			}
			return tw.Flush()
		},
	}
}
