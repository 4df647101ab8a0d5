package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/HSCode-Intelligence/internal/domain/product"
	"github.com/turtacn/HSCode-Intelligence/internal/domain/tariff"
	"github.com/turtacn/HSCode-Intelligence/internal/engine"
	"github.com/turtacn/HSCode-Intelligence/internal/infrastructure/ai"
	"github.com/turtacn/HSCode-Intelligence/internal/infrastructure/rulestore"
	"github.com/turtacn/HSCode-Intelligence/internal/infrastructure/rulestore/postgres"
	"github.com/turtacn/HSCode-Intelligence/internal/nlp"
)

// classifyDocument is the input document read from the file or stdin.
type classifyDocument struct {
	Product    product.RawItem               `json:"product"`
	Candidates []tariff.PreClassifyCandidate `json:"candidates"`
}

func newClassifyCommand(opts *RootOptions) *cobra.Command {
	var (
		file    string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Run the elimination pipeline over a candidate document",
		Long:  "Reads a JSON document with a product and its pre-classified HS candidates,\nruns the elimination pipeline against the configured rule store, and prints\nthe run result.",
		Example: `  hscode classify -f request.json
  cat request.json | hscode classify -f -`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return runClassify(ctx, cmd, opts, file)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "-", `input document ("-" reads stdin)`)
	cmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "overall run timeout")
	return cmd
}

func runClassify(ctx context.Context, cmd *cobra.Command, opts *RootOptions, file string) error {
	doc, err := readDocument(file)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger, err := newLogger(opts)
	if err != nil {
		return err
	}

	pool, err := postgres.Connect(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	var store tariff.RuleStore = postgres.NewStore(pool, logger)
	if cfg.Redis.Addr != "" {
		store = rulestore.NewCached(store, rulestore.NewRedisClient(cfg.Redis), cfg.Redis, logger)
	}

	engOpts := []engine.Option{engine.WithLogger(logger)}
	if cfg.AIEnabled() {
		client, err := ai.NewClient(cfg.AI, logger)
		if err != nil {
			return err
		}
		engOpts = append(engOpts, engine.WithConsultant(client), engine.WithChallenger(client))
	}
	eng := engine.New(store, engOpts...)

	info, err := product.NewInfo(doc.Product, nlp.NewTokenizer())
	if err != nil {
		return err
	}
	res, err := eng.Eliminate(ctx, info, tariff.CandidatesFromPreClassify(tariff.PreClassifyResult{Candidates: doc.Candidates}))
	if err != nil {
		return err
	}

	return printResult(cmd.OutOrStdout(), opts.Output, res)
}

func readDocument(file string) (*classifyDocument, error) {
	var r io.Reader = os.Stdin
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var doc classifyDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode input document: %w", err)
	}
	return &doc, nil
}

func printResult(w io.Writer, format string, res *tariff.RunResult) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	return printText(w, res)
}

func printText(w io.Writer, res *tariff.RunResult) error {
	fmt.Fprintf(w, "run %s: %d survivor(s), %d eliminated\n",
		res.RunID, res.SurvivorCount, res.EliminatedCount)
	for _, c := range res.Survivors {
		fmt.Fprintf(w, "  + %s  (confidence %.0f)\n", c.Code, c.Confidence)
	}
	for _, c := range res.Eliminated {
		fmt.Fprintf(w, "  - %s  [%s] %s\n", c.Code, c.EliminatedAt, c.EliminationReason)
	}
	if len(res.Steps) > 0 {
		fmt.Fprintln(w, "steps:")
		for i, s := range res.Steps {
			fmt.Fprintf(w, "  %2d. [%s/%s] %s\n", i+1, s.Stage, s.Rule, s.Rationale)
		}
	}
	var flags []string
	if res.NeedsAI {
		flags = append(flags, "needs-ai")
	}
	if res.NeedsQuestions {
		flags = append(flags, "needs-questions")
	}
	if len(flags) > 0 {
		fmt.Fprintf(w, "flags: %s\n", strings.Join(flags, ", "))
	}
	return nil
}
