package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cpcf/kiln/engine"
	"github.com/cpcf/kiln/hooks"
	"github.com/cpcf/kiln/templates"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the built-in templates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listTemplates(cmd.OutOrStdout())
	},
}

func listTemplates(out io.Writer) error {
	rows := [][]string{{"TEMPLATE", "VARIABLES", "HOOKS"}}
	for _, name := range templates.Names() {
		tmpl, err := engine.LoadTemplate(templates.MustLookup(name), name)
		if err != nil {
			return err
		}
		var scripts []string
		for _, stage := range hooks.Stages {
			if s := tmpl.Hooks.For(stage); s != nil {
				scripts = append(scripts, s.Name)
			}
		}
		if len(scripts) == 0 {
			scripts = []string{"-"}
		}
		rows = append(rows, []string{name, fmt.Sprint(tmpl.Config.Variables.Len()), strings.Join(scripts, ", ")})
	}
	fmt.Fprint(out, renderTable(newStyles(out), rows))
	return nil
}
