// Command pricer is a thin demo CLI: load a YAML fixture (basket +
// promotion graph), run one evaluation, print the resulting receipt. It
// exercises the module end-to-end; it is not the "interactive UI" or
// persistent HTTP service spec.md excludes.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/masumrpg/promotion-engine/internal/fixture"
	"github.com/masumrpg/promotion-engine/internal/solver"
	"github.com/masumrpg/promotion-engine/pkg/promo"
	"github.com/masumrpg/promotion-engine/pkg/receipt"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "pricer",
		Short: "Evaluate a basket against a layered promotion graph fixture",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(v)
		},
	}

	cmd.Flags().String("fixture", "", "path to the YAML fixture file")
	cmd.Flags().Int("max-nodes", 0, "branch-and-bound node limit (0 = default)")
	cmd.Flags().Bool("verbose", false, "log the per-layer solve formulation")

	_ = v.BindPFlag("fixture", cmd.Flags().Lookup("fixture"))
	_ = v.BindPFlag("max-nodes", cmd.Flags().Lookup("max-nodes"))
	_ = v.BindPFlag("verbose", cmd.Flags().Lookup("verbose"))
	v.SetEnvPrefix("PRICER")
	v.AutomaticEnv()

	return cmd
}

func run(v *viper.Viper) error {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if v.GetBool("verbose") {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}
	log.Logger = logger

	path := v.GetString("fixture")
	if path == "" {
		return fmt.Errorf("pricer: --fixture is required")
	}

	fx, err := fixture.Load(path)
	if err != nil {
		return fmt.Errorf("pricer: %w", err)
	}

	backend := &solver.BranchAndBoundBackend{MaxNodes: v.GetInt("max-nodes")}

	var obs solver.Observer = solver.NoopObserver{}
	if v.GetBool("verbose") {
		obs = loggingObserver{log: log.Logger}
	}

	result, err := fx.Graph.Evaluate(fx.Basket, backend, obs)
	if err != nil {
		return fmt.Errorf("pricer: evaluate: %w", err)
	}

	r, err := receipt.Build(fx.Basket, result)
	if err != nil {
		return fmt.Errorf("pricer: build receipt: %w", err)
	}

	printReceipt(r)
	return nil
}

func printReceipt(r receipt.Receipt) {
	fmt.Printf("Subtotal: %s\n", r.Subtotal)
	fmt.Printf("Total:    %s\n", r.Total)
	fmt.Printf("Savings:  %s\n", r.Savings)
	if len(r.FullPriceItems) > 0 {
		fmt.Printf("Full price items: %v\n", r.FullPriceItems)
	}
	for idx, apps := range r.ItemApplications {
		for _, a := range apps {
			fmt.Printf("  item %d: %s -> %s (promotion %s, bundle %d)\n",
				idx, a.OriginalPrice, a.FinalPrice, a.PromotionKey, a.BundleID)
		}
	}
}

// loggingObserver is the Observer implementation SPEC_FULL.md §4 names as
// replacing the out-of-scope Typst renderer hook with structured logging.
type loggingObserver struct {
	log zerolog.Logger
}

func (o loggingObserver) OnVariable(key promo.Key, label string, varIndex int) {
	o.log.Debug().Str("promotion", key.String()).Str("var", label).Int("index", varIndex).Msg("variable")
}

func (o loggingObserver) OnConstraint(key promo.Key, label string, c solver.Constraint) {
	o.log.Debug().Str("promotion", key.String()).Str("constraint", label).Msg("constraint")
}

func (o loggingObserver) OnObjectiveTerm(key promo.Key, label string, varIndex int, coeff float64) {
	o.log.Debug().Str("promotion", key.String()).Str("var", label).Float64("coeff", coeff).Msg("objective term")
}
