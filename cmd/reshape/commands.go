package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/mmcat/resultshape"
	"github.com/mmcat/resultshape/pkg/config"
	"github.com/mmcat/resultshape/pkg/planfmt"
	"github.com/mmcat/resultshape/pkg/playground"
	"github.com/mmcat/resultshape/pkg/resultfmt"
	"github.com/mmcat/resultshape/pkg/shapeschema"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type app struct {
	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "reshape",
		Short:         "Compile and run result-structure reshaping plans",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(a.runCmd(), a.planCmd(), a.schemaCmd(), a.validateCmd(), a.playgroundCmd(), versionCmd())
	return root
}

func (a *app) runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [data-file...]",
		Short: "Reshape data files (or stdin) from the source into the target structure",
		RunE: func(cmd *cobra.Command, args []string) error {
			source, target, err := readPair(cmd)
			if err != nil {
				return err
			}
			cache, err := resultshape.NewPlanCache(a.cfg.Options())
			if err != nil {
				return err
			}
			if len(args) == 0 {
				args = []string{"-"}
			}
			for _, path := range args {
				var data any
				if err := decodeFile(cmd.InOrStdin(), path, &data); err != nil {
					return err
				}
				plan, err := cache.Get(source, target)
				if err != nil {
					return err
				}
				value, err := plan.TransformContext(cmd.Context(), data)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				if err := resultfmt.Render(cmd.OutOrStdout(), target, value, a.cfg.OutputOptions()); err != nil {
					return err
				}
			}
			if stats, _ := cmd.Flags().GetBool("stats"); stats {
				s := cache.Stats()
				fmt.Fprintf(cmd.ErrOrStderr(), "plans: %d, hits: %d, misses: %d, compiles: %d\n", s.Size, s.Hits, s.Misses, s.Compiles)
			}
			return nil
		},
	}
	pairFlags(cmd)
	cmd.Flags().Bool("stats", false, "print plan cache statistics to stderr")
	return cmd
}

func (a *app) planCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the compiled plan for a source and target structure",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			source, target, err := readPair(cmd)
			if err != nil {
				return err
			}
			plan, err := resultshape.Compile(source, target, a.cfg.Options())
			if err != nil {
				return err
			}
			header, _ := cmd.Flags().GetBool("header")
			_, err = io.WriteString(cmd.OutOrStdout(), planfmt.Format(plan, planfmt.Config{
				Color:  a.color(cmd.OutOrStdout()),
				Header: header,
			}))
			return err
		},
	}
	pairFlags(cmd)
	cmd.Flags().Bool("header", false, "print plan id and root relation")
	return cmd
}

func (a *app) schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema structure-file",
		Short: "Print the JSON schema of the instances of a structure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := readStructure(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			doc := shapeschema.JSONSchema(s)
			out := cmd.OutOrStdout()
			if a.cfg.OutputOptions().Format == resultfmt.FormatYAML {
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(doc); err != nil {
					return err
				}
				return enc.Close()
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(doc)
		},
	}
}

func (a *app) validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [data-file...]",
		Short: "Check data files (or stdin) against a source structure",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("source")
			source, err := readStructure(cmd.InOrStdin(), path)
			if err != nil {
				return err
			}
			if len(args) == 0 {
				args = []string{"-"}
			}
			failed := 0
			for _, path := range args {
				var data any
				if err := decodeFile(cmd.InOrStdin(), path, &data); err != nil {
					return err
				}
				var invalid *shapeschema.ValidationError
				switch err := shapeschema.Validate(source, data); {
				case errors.As(err, &invalid):
					failed++
					for _, p := range invalid.Problems {
						fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", path, p)
					}
				case err != nil:
					return err
				default:
					fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", path)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files do not match %s", failed, len(args), shapeschema.Summary(shapeschema.ToSchema(source), 2))
			}
			return nil
		},
	}
	cmd.Flags().StringP("source", "s", "", "source structure file")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}

func (a *app) playgroundCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "playground document",
		Short: "Run a playground document with source, target and data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var text []byte
			var err error
			if args[0] == "-" {
				text, err = io.ReadAll(cmd.InOrStdin())
			} else {
				text, err = os.ReadFile(args[0])
			}
			if err != nil {
				return err
			}
			result, err := playground.Reshape(cmd.Context(), string(text))
			if err != nil {
				return errors.New(playground.FormatError(err))
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# %s -> %s (%s)\n%s\n%s", result.Source, result.Target, result.Relation, result.Plan, result.Output)
			for _, w := range result.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
			}
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "reshape", version)
		},
	}
}

// color resolves the color setting against w.
func (a *app) color(w io.Writer) bool {
	switch a.cfg.Color {
	case "always":
		return true
	case "never":
		return false
	}
	f, ok := w.(*os.File)
	if !ok || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func pairFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("source", "s", "", "source structure file (json or yaml)")
	cmd.Flags().StringP("target", "t", "", "target structure file (json or yaml)")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("target")
}

func readPair(cmd *cobra.Command) (source, target *resultshape.Structure, err error) {
	sourcePath, _ := cmd.Flags().GetString("source")
	targetPath, _ := cmd.Flags().GetString("target")
	if source, err = readStructure(cmd.InOrStdin(), sourcePath); err != nil {
		return nil, nil, err
	}
	if target, err = readStructure(cmd.InOrStdin(), targetPath); err != nil {
		return nil, nil, err
	}
	return source, target, nil
}

func readStructure(stdin io.Reader, path string) (*resultshape.Structure, error) {
	s := new(resultshape.Structure)
	if err := decodeFile(stdin, path, s); err != nil {
		return nil, err
	}
	return s, nil
}

// decodeFile reads a json or yaml document from path, or from stdin for "-".
func decodeFile(stdin io.Reader, path string, v any) error {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	if err := yaml.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
