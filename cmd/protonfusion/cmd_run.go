package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"protonfusion/internal/pipeline"
)

var (
	runMode       string
	runDescriptor string
	runSalt       string
	transformAlg  string
)

var runCmd = &cobra.Command{
	Use:   "run [image]",
	Short: "Fuse an image and record the composite",
	Long: `Runs the standard and quantum transforms on the image, builds the composite
for the chosen perspective mode and writes every output to the output directory:

  direct  composite of standard and quantum at 50%
  mirror  standard laid over its mirror at 70%
  mutual  standard fused at 50% with its 70% mirror overlay

Unknown modes fall back to direct.`,
	Args: cobra.ExactArgs(1),
	RunE: runFusion,
}

var transformCmd = &cobra.Command{
	Use:   "transform [image]",
	Short: "Apply a single transform (standard, quantum, mirror)",
	Args:  cobra.ExactArgs(1),
	RunE:  runTransform,
}

func init() {
	runCmd.Flags().StringVarP(&runMode, "mode", "m", "direct", "Perspective mode: direct, mirror or mutual")
	runCmd.Flags().StringVarP(&runDescriptor, "descriptor", "d", "", "Signature context (default TENET_COMPOSITE_<MODE>)")
	runCmd.Flags().StringVar(&runSalt, "salt", "", "Signature salt (default: current microtime)")

	transformCmd.Flags().StringVarP(&transformAlg, "algorithm", "a", "standard", "Transform to apply")
}

func runFusion(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	a, err := newApplication(ctx)
	if err != nil {
		return err
	}
	defer shutdown(a)

	mode := pipeline.ParseMode(runMode)
	out, err := a.Run(ctx, args[0], pipeline.Request{
		Mode:       mode,
		Descriptor: runDescriptor,
		Salt:       runSalt,
	})
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Perspective: %s\n", mode.Display())
	fmt.Fprintf(w, "Ember ID:    %s\n", out.Result.Signature.ShortCode)
	fmt.Fprintf(w, "Glyph:       %s\n", out.Result.Signature.GlyphString())
	fmt.Fprintf(w, "Descriptor:  %s\n", out.Result.Descriptor)
	for _, f := range out.Files {
		fmt.Fprintf(w, "  %s\n", f)
	}
	return nil
}

func runTransform(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	a, err := newApplication(ctx)
	if err != nil {
		return err
	}
	defer shutdown(a)

	path, err := a.Transform(ctx, args[0], transformAlg)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
