// Command esgpt inspects and exercises structured event-stream model
// configurations.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"

	"github.com/mmcdermott/EventStreamML/esgpt"
)

const version = "v0.1.0"

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	root := &cobra.Command{
		Use:     "esgpt",
		Short:   "Structured event-stream generative modelling",
		Version: version,
	}
	root.AddCommand(validateCmd(), describeCmd(), demoCmd(logger))

	if err := root.Execute(); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config.yaml>",
		Short: "Validate a model configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := esgpt.LoadConfig(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s: ok (%d measurements, vocab size %d, %s)\n",
				args[0], len(cfg.VocabSizesByMeasurement), cfg.TotalVocabSize(), cfg.ProcessingMode)
			return nil
		},
	}
}

func describeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <config.yaml>",
		Short: "Describe a model configuration's vocabulary and heads",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := esgpt.LoadConfig(args[0])
			if err != nil {
				return err
			}

			fmt.Printf("processing mode: %s\n", cfg.ProcessingMode)
			fmt.Printf("hidden size:     %d\n", cfg.HiddenSize)
			fmt.Printf("tte head:        %s\n", cfg.TTEHeadType)
			fmt.Printf("vocabulary (%d entries):\n", cfg.TotalVocabSize())
			for _, name := range cfg.MeasurementsSortedByOffset() {
				offset := cfg.VocabOffsetsByMeasurement[name]
				size := cfg.VocabSizesByMeasurement[name]
				fmt.Printf("  %-24s [%d, %d)\n", name, offset, offset+size)
			}
			for mode, measurements := range cfg.MeasurementsPerGenerativeMode {
				fmt.Printf("%s: %v\n", mode, measurements)
			}
			if cfg.MeasurementsPerDepGraphLevel != nil {
				fmt.Println("dependency graph:")
				for i, groups := range cfg.MeasurementsPerDepGraphLevel {
					if i == 0 {
						fmt.Println("  level 0: (time-to-event)")
						continue
					}
					fmt.Printf("  level %d:", i)
					for _, g := range groups {
						fmt.Printf(" %s(%s)", g.Measurement, g.EffectiveKind())
					}
					fmt.Println()
				}
			}
			return nil
		},
	}
}

// demoCmd builds a small conditionally-independent model over synthetic data
// and prints one forward pass's losses.
func demoCmd(logger *slog.Logger) *cobra.Command {
	var seed uint64
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a forward pass over a synthetic batch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := &esgpt.Config{
				ProcessingMode: esgpt.ConditionallyIndependent,
				HiddenSize:     16,
				VocabSizesByMeasurement: map[string]int{
					"event_type": 3,
					"diagnosis":  8,
				},
				VocabOffsetsByMeasurement: map[string]int{
					"event_type": 0,
					"diagnosis":  3,
				},
				MeasurementsIdxmap: map[string]int{
					"event_type": 1,
					"diagnosis":  2,
				},
				MeasurementsPerGenerativeMode: map[esgpt.GenerativeMode][]string{
					esgpt.SingleLabelClassification: {"event_type"},
					esgpt.MultiLabelClassification:  {"diagnosis"},
				},
				TTEHeadType: esgpt.TTEExponential,
			}

			rng := rand.New(rand.NewSource(seed))
			layer, err := esgpt.NewOutputLayer(cfg, rng, logger)
			if err != nil {
				return err
			}

			batch := &esgpt.Batch{
				DynamicMeasurementIndices: esgpt.MustFromSlice([]int64{
					1, 2, 1, 2, 1, 2,
					1, 2, 1, 2, 0, 0,
				}, esgpt.Shape{2, 3, 2}),
				DynamicIndices: esgpt.MustFromSlice([]int64{
					0, 4, 1, 7, 2, 5,
					1, 3, 0, 9, 0, 0,
				}, esgpt.Shape{2, 3, 2}),
				DynamicValues:     esgpt.Zeros[float32](esgpt.Shape{2, 3, 2}),
				DynamicValuesMask: esgpt.Zeros[bool](esgpt.Shape{2, 3, 2}),
				EventMask: esgpt.MustFromSlice([]bool{
					true, true, true,
					true, true, false,
				}, esgpt.Shape{2, 3}),
				Time: esgpt.MustFromSlice([]float32{
					0, 30, 95,
					0, 12, 40,
				}, esgpt.Shape{2, 3}),
			}

			out, err := layer.Forward(batch, esgpt.Randn(esgpt.Shape{2, 3, 16}, rng), false)
			if err != nil {
				return err
			}

			fmt.Printf("total loss: %.4f\n", *out.Loss)
			for measurement, loss := range out.Losses.Classification {
				fmt.Printf("  %-12s %.4f\n", measurement, loss)
			}
			fmt.Printf("  %-12s %.4f\n", "tte", *out.Losses.TimeToEvent)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&seed, "seed", 1, "random seed")
	return cmd
}
