package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/ragrec/internal/ingest/source"
)

type ingestFlags struct {
	reset bool
	texts []string
}

func newIngestCmd(flags *rootFlags) *cobra.Command {
	f := &ingestFlags{}

	cmd := &cobra.Command{
		Use:   "ingest [file|url]...",
		Short: "Load sources into the corpus index",
		Long: "Loads JSON item lists, PDFs, web pages and plain text files into the corpus.\n" +
			"Only meaningful with a persistent index driver (redis, valkey).",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && len(f.texts) == 0 && !f.reset {
				return fmt.Errorf("nothing to ingest: pass files, URLs or --text")
			}
			return runIngest(cmd, flags, f, args)
		},
	}
	cmd.Flags().BoolVar(&f.reset, "reset", false, "remove all indexed items first")
	cmd.Flags().StringArrayVar(&f.texts, "text", nil, "inline text to ingest as one item")
	return cmd
}

func runIngest(cmd *cobra.Command, flags *rootFlags, f *ingestFlags, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, flags)
	if err != nil {
		return err
	}
	defer a.Close()

	if f.reset {
		if err := a.ingest.Reset(ctx); err != nil {
			return fmt.Errorf("reset corpus: %w", err)
		}
	}

	loaders := make([]source.Loader, 0, len(args)+len(f.texts))
	for _, arg := range args {
		loaders = append(loaders, source.Resolve(arg, a.sources))
	}
	for i, text := range f.texts {
		loaders = append(loaders, &source.Text{
			Title:   fmt.Sprintf("Text %d", i+1),
			Body:    text,
			Cleaner: a.sources.Cleaner,
		})
	}

	report, err := a.ingest.Ingest(ctx, loaders)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Indexed %d items\n", report.Items)
	kinds := make([]string, 0, len(report.BySource))
	for k := range report.BySource {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(out, "  %s: %d\n", k, report.BySource[k])
	}

	n, err := a.ingest.Count(ctx)
	if err == nil {
		fmt.Fprintf(out, "Corpus size: %d\n", n)
	}
	return nil
}
