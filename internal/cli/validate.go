package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pendergraft/netprofile/internal/profile"
)

// errValidationFailed is returned when at least one document has errors.
var errValidationFailed = errors.New("validation failed")

func createValidateCmd() *cobra.Command {
	var checkEnv bool
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate [files...]",
		Short: "Check documents against the profile rules",
		Long: `Check one or more profile documents.

Without arguments the configured document is checked. Each network must use
exactly one connection mode, counters must be non-negative, the compiler
version must be a semantic version, and every referenced environment
variable must be documented.

EXAMPLES:
  netprofile validate
  netprofile validate configs/netprofile.toml configs/netprofile.polygon.toml
  netprofile validate --check-env --strict
  netprofile validate -o json
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := args
			if len(paths) == 0 {
				paths = []string{getDocumentPath()}
			}
			return runValidate(cmd.OutOrStdout(), paths, checkEnv, strict)
		},
	}

	cmd.Flags().BoolVar(&checkEnv, "check-env", false, "warn about referenced variables that are unset")
	cmd.Flags().BoolVar(&strict, "strict", false, "treat warnings as errors")

	return cmd
}

func runValidate(w io.Writer, paths []string, checkEnv, strict bool) error {
	reports := make([]*profile.Report, 0, len(paths))
	failed := false
	for _, path := range paths {
		doc, _, err := loadDocument(path)
		if err != nil {
			// Report it with the others rather than stopping.
			reports = append(reports, &profile.Report{
				Source: path,
				Issues: []profile.Issue{{Severity: profile.SeverityError, Message: err.Error()}},
			})
			failed = true
			continue
		}
		report := profile.Validate(doc, profile.ValidateOptions{CheckEnvironment: checkEnv})
		reports = append(reports, report)
		if !report.Valid() || (strict && len(report.Warnings()) > 0) {
			failed = true
		}
	}

	err := render(w, reports, func(w io.Writer) error {
		for _, r := range reports {
			status := "ok"
			if !r.Valid() {
				status = "invalid"
			}
			fmt.Fprintf(w, "%s: %s (%d errors, %d warnings)\n", r.Source, status, len(r.Errors()), len(r.Warnings()))
			for _, issue := range r.Issues {
				fmt.Fprintf(w, "  %s\n", issue)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if failed {
		return errValidationFailed
	}
	return nil
}
