// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/portal/internal/department"
)

// NewDepartmentsCmd creates the departments subcommand.
func NewDepartmentsCmd(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "departments",
		Short: "Inspect the department policy",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a department policy file",
		Long: `Validate a department policy file against the schema and registry
rules. Without an argument the configured departments_file is checked, or
the built-in policy when none is configured.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				cfg, _, err := loadConfig(cmd, deps)
				if err != nil {
					return err
				}
				path = cfg.DepartmentsFile
			}

			reg, err := department.Load(path)
			if err != nil {
				return err
			}
			source := path
			if source == "" {
				source = "built-in policy"
			}
			cmd.Printf("%s: %d department(s) valid\n", source, len(reg.Codes()))
			for _, code := range reg.Codes() {
				d, _ := reg.Get(code) //nolint:errcheck // code comes from the registry
				cmd.Printf("  %-6s %s\n", d.Code, d.Name)
			}
			return nil
		},
	})

	var out string
	schema := &cobra.Command{
		Use:   "schema",
		Short: "Print the department policy JSON schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := department.GenerateSchema()
			if err != nil {
				return err
			}
			if out == "" {
				_, err := cmd.OutOrStdout().Write(data)
				return oops.Code("OUTPUT_FAILED").Wrap(err)
			}
			if err := os.WriteFile(out, data, 0o600); err != nil {
				return oops.Code("OUTPUT_FAILED").With("path", out).Wrap(err)
			}
			cmd.Printf("Wrote %s\n", out)
			return nil
		},
	}
	schema.Flags().StringVarP(&out, "output", "o", "", "write to file instead of stdout")
	cmd.AddCommand(schema)

	return cmd
}
