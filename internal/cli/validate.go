package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/tickr/internal/harness"
)

// FileValidation is the outcome of loading one scenario file.
type FileValidation struct {
	Path     string `json:"path"`
	Scenario string `json:"scenario,omitempty"`
	Valid    bool   `json:"valid"`
	Error    string `json:"error,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario>...",
		Short: "Validate scenario files without running them",
		Long: `Load and validate scenario files (YAML or CUE).

Checks field names, command kinds and params, trigger expressions,
binding arity, step actions and assertion references. Nothing is run.

Exit codes:
  0 - All files valid
  1 - One or more files invalid
  2 - Command error (file not found)`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("scenario file not found: %s", path), nil)
			return WrapExitError(ExitCommandError, "scenario file not found", err)
		}
	}

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(paths))}
	for _, path := range paths {
		fv := FileValidation{Path: path, Valid: true}
		scenario, err := harness.LoadScenario(path)
		if err != nil {
			fv.Valid = false
			fv.Error = err.Error()
			result.Valid = false
		} else {
			fv.Scenario = scenario.Name
			formatter.VerboseLog("%s: %d command(s), %d binding(s), %d step(s)",
				path, len(scenario.Commands), len(scenario.Bindings), len(scenario.Steps))
		}
		result.Files = append(result.Files, fv)
	}

	if opts.Format == "json" {
		if !result.Valid {
			if err := formatter.Failure(ErrCodeInvalid, "validation failed", result); err != nil {
				return err
			}
			return NewExitError(ExitFailure, "validation failed")
		}
		return formatter.Success(result)
	}

	w := cmd.OutOrStdout()
	for _, fv := range result.Files {
		if fv.Valid {
			fmt.Fprintf(w, "✓ %s (%s)\n", fv.Path, fv.Scenario)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n  %s\n", fv.Path, fv.Error)
	}
	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}
