package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cpcf/kiln/debug"
	"github.com/cpcf/kiln/source"
)

var errTemplateInvalid = errors.New("template has errors")

var checkFlags struct {
	checkout  string
	directory string
}

var checkCmd = &cobra.Command{
	Use:   "check <template>",
	Short: "Report template mistakes without baking",
	Long: `Parse every file name, file, hook and default of a template and report
syntax errors, undeclared variables and variables nothing uses.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return checkTemplate(cmd.Context(), rootFlags.configFile, args[0], source.Options{
			Checkout:  checkFlags.checkout,
			Directory: checkFlags.directory,
		}, cmd.OutOrStdout())
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkFlags.checkout, "checkout", "", "Branch or tag to use for git templates")
	checkCmd.Flags().StringVar(&checkFlags.directory, "directory", "", "Template directory inside the source")
}

func checkTemplate(ctx context.Context, configFile, ref string, opts source.Options, out io.Writer) error {
	tmpl, err := loadTemplate(ctx, configFile, ref, opts)
	if err != nil {
		return err
	}

	result := debug.NewTemplateValidator(templateFuncs()).Validate(tmpl)
	st := newStyles(out)
	for _, e := range result.Errors {
		fmt.Fprintln(out, st.failure.Render("✗")+" "+e.String())
	}
	for _, w := range result.Warnings {
		fmt.Fprintln(out, st.faint.Render("! "+w.String()))
	}
	fmt.Fprintf(out, "%s: %s\n", st.title.Render(tmpl.Name), result.Summary())

	if result.HasErrors() {
		return errTemplateInvalid
	}
	return nil
}
