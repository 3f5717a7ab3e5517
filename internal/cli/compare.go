package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"

	"github.com/pendergraft/netprofile/internal/profile"
)

// errInconsistent is returned when two documents disagree on a shared network.
var errInconsistent = errors.New("documents are inconsistent")

func createCompareCmd() *cobra.Command {
	var showDiff bool

	cmd := &cobra.Command{
		Use:   "compare <a> <b>",
		Short: "Check two documents for consistency where they overlap",
		Long: `Compare two documents network by network.

Networks present in only one document are listed but are not an error.
Networks present in both must agree on every setting, and the compiler
versions must match. Neither document is treated as authoritative.

EXAMPLES:
  netprofile compare configs/netprofile.toml configs/netprofile.polygon.toml
  netprofile compare a.toml b.yaml --diff
`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			left, _, err := loadDocument(args[0])
			if err != nil {
				return err
			}
			right, _, err := loadDocument(args[1])
			if err != nil {
				return err
			}
			return runCompare(cmd.OutOrStdout(), left, right, showDiff)
		},
	}

	cmd.Flags().BoolVar(&showDiff, "diff", false, "print a structural diff of each conflicting network")

	return cmd
}

func runCompare(w io.Writer, left, right *profile.Document, showDiff bool) error {
	c := profile.Compare(left, right)

	err := render(w, c, func(w io.Writer) error {
		fmt.Fprintf(w, "%s <> %s\n", left.Source, right.Source)
		fmt.Fprintf(w, "  shared:     %s\n", listOrDash(c.Shared))
		fmt.Fprintf(w, "  only left:  %s\n", listOrDash(c.OnlyLeft))
		fmt.Fprintf(w, "  only right: %s\n", listOrDash(c.OnlyRight))
		if c.Consistent() {
			fmt.Fprintln(w, "consistent")
			return nil
		}
		fmt.Fprintf(w, "%d conflicts:\n", len(c.Conflicts))
		for _, cf := range c.Conflicts {
			field := cf.Field
			if cf.Network != "" {
				field = "networks." + cf.Network + "." + cf.Field
			}
			fmt.Fprintf(w, "  %s: %q != %q\n", field, cf.Left, cf.Right)
		}
		if showDiff {
			for _, name := range conflictingNetworks(c) {
				fmt.Fprintf(w, "\n%s (-left +right):\n%s", name, networkDiff(left, right, name))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !c.Consistent() {
		return errInconsistent
	}
	return nil
}

func conflictingNetworks(c *profile.Comparison) []string {
	var names []string
	seen := map[string]bool{}
	for _, cf := range c.Conflicts {
		if cf.Network != "" && !seen[cf.Network] {
			seen[cf.Network] = true
			names = append(names, cf.Network)
		}
	}
	return names
}

// networkDiff diffs the display fields of one network, so secrets show
// by template only.
func networkDiff(left, right *profile.Document, name string) string {
	l, _ := left.Network(name)
	r, _ := right.Network(name)
	return cmp.Diff(fieldsOf(l), fieldsOf(r))
}

func fieldsOf(n profile.Network) map[string]string {
	out := map[string]string{}
	for _, f := range n.Fields() {
		out[f.Name] = f.Value
	}
	return out
}

func listOrDash(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}
