package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/promptgauge/promptgauge/internal/output"
	"github.com/promptgauge/promptgauge/internal/pricing"
)

func newPricingCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pricing",
		Short: "Inspect model prices and estimate call costs",
	}
	cmd.AddCommand(
		newPricingListCmd(a),
		newPricingSetCmd(a),
		newPricingEstimateCmd(a),
	)
	return cmd
}

func newPricingListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known models and their per-1M-token prices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table := a.priceTable()

			if a.cfg.Output.JSON {
				type row struct {
					Model       string  `json:"model"`
					InputPer1M  float64 `json:"input_per_1m"`
					OutputPer1M float64 `json:"output_per_1m"`
				}
				rows := make([]row, 0)
				for _, model := range table.Models() {
					p, _ := table.Lookup(model)
					rows = append(rows, row{model, p.InputPer1M, p.OutputPer1M})
				}
				return output.PrintJSON(a.stdout, rows)
			}

			fmt.Fprintf(a.stdout, "%-24s %12s %12s\n", "MODEL", "INPUT/1M", "OUTPUT/1M")
			for _, model := range table.Models() {
				p, _ := table.Lookup(model)
				fmt.Fprintf(a.stdout, "%-24s %12.2f %12.2f\n", model, p.InputPer1M, p.OutputPer1M)
			}
			return nil
		},
	}
}

func newPricingSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <model> <input-per-1m> <output-per-1m>",
		Short: "Show the config snippet that overrides a model's prices",
		Long: `Show the config snippet that overrides a model's prices.

Price overrides live in the config file's pricing section so they apply
to every command; this prints the YAML to add.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("input price: %w", err)
			}
			out, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("output price: %w", err)
			}
			if input < 0 || out < 0 {
				return fmt.Errorf("prices must be >= 0")
			}
			fmt.Fprintf(a.stdout, "pricing:\n  %s:\n    input: %g\n    output: %g\n", args[0], input, out)
			return nil
		},
	}
}

func newPricingEstimateCmd(a *app) *cobra.Command {
	var model, textFile string
	var inputTokens, outputTokens int

	cmd := &cobra.Command{
		Use:   "estimate [text]",
		Short: "Estimate the cost of a call",
		Long: `Estimate the cost of a call.

Token counts may be given directly with --input-tokens/--output-tokens,
or derived from text (inline or via --file) using the model's tokenizer.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if model == "" {
				model = a.cfg.Target.Model
			}
			if model == "" {
				return fmt.Errorf("a model is required: pass --model or configure target.model")
			}

			if inputTokens == 0 {
				text := ""
				switch {
				case len(args) == 1:
					text = args[0]
				case textFile != "":
					data, err := os.ReadFile(textFile)
					if err != nil {
						return fmt.Errorf("read text file: %w", err)
					}
					text = string(data)
				}
				if text != "" {
					inputTokens = pricing.EstimateTokens(model, text)
				}
			}

			table := a.priceTable()
			cost := table.Cost(model, inputTokens, outputTokens)
			_, known := table.Lookup(model)

			if a.cfg.Output.JSON {
				return output.PrintJSON(a.stdout, struct {
					Model        string  `json:"model"`
					InputTokens  int     `json:"input_tokens"`
					OutputTokens int     `json:"output_tokens"`
					Cost         float64 `json:"cost"`
					KnownModel   bool    `json:"known_model"`
				}{model, inputTokens, outputTokens, cost, known})
			}

			fmt.Fprintf(a.stdout, "Model:         %s\n", model)
			fmt.Fprintf(a.stdout, "Input tokens:  %d\n", inputTokens)
			fmt.Fprintf(a.stdout, "Output tokens: %d\n", outputTokens)
			fmt.Fprintf(a.stdout, "Cost (EUR):    %.6f\n", cost)
			if !known {
				fmt.Fprintln(a.stdout, "Note: no price entry for this model; cost is 0.")
			}
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&model, "model", "", "model to price (default target.model)")
	fs.StringVar(&textFile, "file", "", "file whose text to tokenize as input")
	fs.IntVar(&inputTokens, "input-tokens", 0, "input token count (skips tokenizing)")
	fs.IntVar(&outputTokens, "output-tokens", 0, "expected output token count")
	return cmd
}
