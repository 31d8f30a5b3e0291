package main

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/dgallion1/modsearch/internal/report"
	"github.com/dgallion1/modsearch/internal/search"
	"github.com/dgallion1/modsearch/internal/store"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

type searchFlags struct {
	exact  bool
	dir    string
	format string
	out    string
	cutoff int
}

func newSearchCmd(a *app) *cobra.Command {
	var f searchFlags
	cmd := &cobra.Command{
		Use:   "search [target]",
		Short: "Search downloaded definitions for a keyword",
		Long: `Search every definition in the application's definition directory and
print each location where the target occurs, with the definitions it was
found in. Locations nested inside one another are reported once.

The target defaults to $SEARCH_TARGET.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := a.cfg.SearchTarget
			if len(args) == 1 {
				target = args[0]
			}
			if !cmd.Flags().Changed("exact") {
				f.exact = a.cfg.SearchExact
			}
			return a.search(target, f)
		},
	}
	cmd.Flags().BoolVar(&f.exact, "exact", false, "match whole values only (default $SEARCH_EXACT)")
	cmd.Flags().StringVar(&f.dir, "dir", "", "definition directory (default {OUTPUT_DIR}/moduleDefinitions_{APPLICATION_ID})")
	cmd.Flags().StringVarP(&f.format, "format", "f", "text", "output format: text, markdown, html or json")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "write the report to this file instead of stdout")
	cmd.Flags().IntVar(&f.cutoff, "cutoff", 0, "maximum characters of a matched value (default $VALUE_CUTOFF)")
	return cmd
}

func (a *app) search(target string, f searchFlags) error {
	if target == "" {
		return errors.New("a search target is required")
	}
	format, err := report.ParseFormat(f.format)
	if err != nil {
		return err
	}

	st := store.New(a.fs, a.cfg.OutputDir, a.cfg.ModuleListFilename)
	dir := f.dir
	if dir == "" {
		if a.cfg.ApplicationID == "" {
			return errors.New("--dir or APPLICATION_ID is required")
		}
		dir = st.DefinitionDir(a.cfg.ApplicationID)
	}

	docs, err := st.LoadCorpus(dir)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		a.log.Warn("no definitions found", "dir", dir)
	}

	opts := a.cfg.SearchOptions()
	if f.cutoff > 0 {
		opts.Cutoff = f.cutoff
	}
	res := search.NewSearcher(opts).Scan(docs, search.Target{Value: target, Exact: f.exact})
	a.log.Info("search complete", "documents", res.Documents, "hits", res.Hits, "locations", len(res.Locations))

	r := report.Renderer{Target: target}
	if f.out == "" {
		r.Styled = a.styled && format == report.FormatText
		return r.Render(a.out, res.Locations, format)
	}

	var buf bytes.Buffer
	if err := r.Render(&buf, res.Locations, format); err != nil {
		return err
	}
	if err := afero.WriteFile(a.fs, f.out, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Fprintf(a.out, "Wrote %d location(s) to %s\n", len(res.Locations), f.out)
	return nil
}
