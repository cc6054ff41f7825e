// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/plant-harvester/internal/plants"
)

var resourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "List the PLANTS resources fetched for every symbol",
	Long: `Resources prints the profile request and the resource table in fetch
order: the resource name, the HTTP method, the path template, the negotiated
content type, and the file each result is saved to.`,
	RunE: runResources,
}

func init() {
	resourcesCmd.Flags().Bool("yaml", false, "print the table as YAML")

	rootCmd.AddCommand(resourcesCmd)
}

func runResources(cmd *cobra.Command, args []string) error {
	specs := append([]plants.ResourceSpec{plants.ProfileSpec}, plants.Resources()...)

	if asYAML, _ := cmd.Flags().GetBool("yaml"); asYAML {
		data, err := yaml.Marshal(specs)
		if err != nil {
			return fmt.Errorf("marshaling resources: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"Resource", "Method", "Path", "Accept", "File"})
	for _, s := range specs {
		method := http.MethodGet
		if s.Body != "" {
			method = http.MethodPost
		}
		file := s.FileName()
		if s.Name == plants.ProfileSpec.Name {
			file = "<symbol>.json"
		}
		t.AppendRow(table.Row{s.Name, method, s.Path, s.Accept, file})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}
