/*
Copyright 2024 eatmoreapple

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/eatmoreapple/fluentdb"
)

func newProvidersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the registered providers",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, name := range a.registry.Names() {
				cmd.Println(name)
			}
		},
	}
}

func newQueryCmd(a *app) *cobra.Command {
	var xlsx string
	cmd := &cobra.Command{
		Use:   "query SQL",
		Short: "Run a query and print every result set",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			command, err := a.command(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			ds, err := command.GetDataSet(cmd.Context())
			if err != nil {
				return err
			}
			if xlsx != "" {
				if err = writeWorkbook(ds, xlsx); err != nil {
					return err
				}
				cmd.Printf("%d table(s) written to %s\n", len(ds.Tables), xlsx)
				return nil
			}
			return writeTables(cmd.OutOrStdout(), ds)
		}),
	}
	cmd.Flags().StringVar(&xlsx, "xlsx", "", "write the result sets to an Excel workbook instead")
	return cmd
}

func newExecCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exec SQL",
		Short: "Run a statement and print the number of affected rows",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			command, err := a.command(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			n, err := command.ExecuteUpdate(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("%d row(s) affected\n", n)
			return nil
		}),
	}
}

func newScalarCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scalar SQL",
		Short: "Run a query and print the first column of the first row",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			command, err := a.command(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			v, err := fluentdb.ExecuteScalar[any](cmd.Context(), command)
			if err != nil {
				return err
			}
			cmd.Println(formatValue(v))
			return nil
		}),
	}
}

func newCallCmd(a *app) *cobra.Command {
	var outputs []string
	cmd := &cobra.Command{
		Use:   "call PROCEDURE",
		Short: "Call a stored procedure and print its output parameters",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			command, err := a.command(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, name := range outputs {
				command.AddParameterSpec(fluentdb.ParameterSpec{Name: name, Direction: fluentdb.DirectionOutput})
			}
			params, err := command.ExecuteStoredProcedure(cmd.Context())
			if err != nil {
				return err
			}
			for _, p := range params {
				cmd.Printf("%s = %s\n", p.Name(), formatValue(p.Value()))
			}
			return nil
		}),
	}
	cmd.Flags().StringArrayVar(&outputs, "out", nil, "output parameter name, repeatable")
	return cmd
}
