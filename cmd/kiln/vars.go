package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/cpcf/kiln/config"
	"github.com/cpcf/kiln/engine"
	"github.com/cpcf/kiln/logging"
	"github.com/cpcf/kiln/source"
	"github.com/cpcf/kiln/vars"
)

var varsFlags struct {
	checkout  string
	directory string
}

var varsCmd = &cobra.Command{
	Use:   "vars <template>",
	Short: "List the variables a template accepts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return listVariables(cmd.Context(), rootFlags.configFile, args[0], source.Options{
			Checkout:  varsFlags.checkout,
			Directory: varsFlags.directory,
		}, cmd.OutOrStdout())
	},
}

func init() {
	varsCmd.Flags().StringVar(&varsFlags.checkout, "checkout", "", "Branch or tag to use for git templates")
	varsCmd.Flags().StringVar(&varsFlags.directory, "directory", "", "Template directory inside the source")
}

// listVariables prints the schema of ref as a table of name, kind and
// default.
func listVariables(ctx context.Context, configFile, ref string, opts source.Options, out io.Writer) error {
	tmpl, err := loadTemplate(ctx, configFile, ref, opts)
	if err != nil {
		return err
	}

	rows := [][]string{{"NAME", "KIND", "DEFAULT"}}
	for _, v := range tmpl.Config.Variables.Variables() {
		rows = append(rows, []string{v.Name, v.Kind.String(), describeDefault(v)})
	}
	fmt.Fprint(out, renderTable(newStyles(out), rows))
	return nil
}

// loadTemplate resolves ref with the user's cache directory and
// abbreviations and loads it.
func loadTemplate(ctx context.Context, configFile, ref string, opts source.Options) (*engine.Template, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	user, err := config.LoadUser(configFile)
	if err != nil {
		return nil, err
	}
	opts.CacheDir = user.CacheDir
	opts.Abbreviations = user.Abbreviations
	opts.Logger = logging.GetLogger("source")

	src, err := source.Resolve(ctx, ref, opts)
	if err != nil {
		return nil, err
	}
	return engine.LoadTemplate(src.FS, src.Name)
}

func describeDefault(v vars.Variable) string {
	if v.Kind == vars.Choice {
		return strings.Join(v.Choices, " | ")
	}
	return fmt.Sprint(v.Default)
}

// renderTable pads each column to its widest cell. The first row is the
// header.
func renderTable(st styles, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	var b strings.Builder
	for r, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			style := lipgloss.NewStyle()
			if r == 0 {
				style = st.header
			}
			if i < len(row)-1 {
				style = style.Width(widths[i] + 2)
			}
			cells[i] = style.Render(cell)
		}
		b.WriteString(strings.TrimRight(lipgloss.JoinHorizontal(lipgloss.Top, cells...), " "))
		b.WriteByte('\n')
	}
	return b.String()
}
