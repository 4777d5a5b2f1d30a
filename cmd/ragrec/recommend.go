package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/ragrec/internal/domain/outcome"
	"github.com/kailas-cloud/ragrec/internal/domain/query"
	"github.com/kailas-cloud/ragrec/internal/ingest/source"
)

type recommendFlags struct {
	profile string
	input   string
	k       int
	sources []string
	json    bool
}

func newRecommendCmd(flags *rootFlags) *cobra.Command {
	f := &recommendFlags{}

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Run one recommendation query through the pipeline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRecommend(cmd, flags, f)
		},
	}
	cmd.Flags().StringVar(&f.profile, "profile", "", "user taste profile")
	cmd.Flags().StringVar(&f.input, "input", "", "what the user asks for")
	cmd.Flags().IntVar(&f.k, "k", 0, "number of corpus items to retrieve (default: retrieval.k)")
	cmd.Flags().StringSliceVar(&f.sources, "source", nil, "sources to ingest before querying (files or URLs)")
	cmd.Flags().BoolVar(&f.json, "json", false, "print the outcome as JSON")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

type cliOutcome struct {
	Status          string `json:"status"`
	Recommendations any    `json:"recommendations"`
	Reason          string `json:"reason,omitempty"`
	Backend         string `json:"backend,omitempty"`
	Kind            string `json:"kind,omitempty"`
	Stage           string `json:"stage,omitempty"`
	Message         string `json:"message,omitempty"`
}

func runRecommend(cmd *cobra.Command, flags *rootFlags, f *recommendFlags) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	q, err := query.New(f.profile, f.input)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, flags)
	if err != nil {
		return err
	}
	defer a.Close()

	if len(f.sources) > 0 {
		loaders := make([]source.Loader, 0, len(f.sources))
		for _, s := range f.sources {
			loaders = append(loaders, source.Resolve(s, a.sources))
		}
		if _, err := a.ingest.Ingest(ctx, loaders); err != nil {
			return err
		}
	}

	out := a.recommend.Recommend(ctx, q, f.k)
	if f.json {
		return printJSON(cmd, out)
	}
	return printText(cmd, out)
}

func printJSON(cmd *cobra.Command, out outcome.Outcome) error {
	v := cliOutcome{
		Status:          string(out.Status()),
		Recommendations: out.Recommendations(),
		Reason:          out.Reason(),
		Backend:         out.Backend(),
	}
	if out.Status() == outcome.StatusFailed {
		v.Kind = string(out.Kind())
		v.Stage = string(out.Stage())
		v.Message = out.Guidance()
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	if out.Status() == outcome.StatusFailed {
		return fmt.Errorf("recommendation failed at %s: %s", out.Stage(), out.Kind())
	}
	return nil
}

func printText(cmd *cobra.Command, out outcome.Outcome) error {
	w := cmd.OutOrStdout()
	switch out.Status() {
	case outcome.StatusSuccess:
		for i, r := range out.Recommendations() {
			fmt.Fprintf(w, "%d. %s (%.2f)\n   %s\n", i+1, r.Title, r.Score, r.Reason)
		}
		fmt.Fprintf(w, "\nvia %s\n", out.Backend())
		return nil
	case outcome.StatusEmpty:
		fmt.Fprintf(w, "No recommendations: %s\n", out.Reason())
		return nil
	default:
		return fmt.Errorf("%s (stage %s, %s)", out.Guidance(), out.Stage(), out.Kind())
	}
}
