/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

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
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/simplylegal/internal"
	"github.com/valpere/simplylegal/internal/store"
)

var glossaryCmd = &cobra.Command{
	Use:   "glossary",
	Short: "Manage plain-language wording for terms",
	Long: `Add, list, and delete glossary entries.

A glossary entry tells the model how a term should always be rewritten in a
given mode, for example "hereinafter" -> "from now on" in legal mode.`,
}

var glossaryListMode string

var glossaryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List glossary entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		var mode internal.Mode
		if glossaryListMode != "" {
			m, err := internal.ParseMode(glossaryListMode)
			if err != nil {
				return err
			}
			mode = m
		}

		db, err := store.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		entries, err := db.ListGlossaryTerms(context.Background(), mode)
		if err != nil {
			return fmt.Errorf("failed to list glossary: %w", err)
		}

		if len(entries) == 0 {
			fmt.Println("Glossary is empty.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tMODE\tTERM\tPLAIN")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.ID, e.Mode, e.Term, e.Plain)
		}
		return w.Flush()
	},
}

var glossaryAddMode string

var glossaryAddCmd = &cobra.Command{
	Use:   "add <term> <plain>",
	Short: "Add or update a glossary entry",
	Long: `Add a glossary entry mapping a term to its plain wording.

Example:
  simplylegal glossary add "hereinafter" "from now on" --mode legal`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := internal.ParseMode(glossaryAddMode)
		if err != nil {
			return err
		}

		db, err := store.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		id, err := db.AddGlossaryTerm(context.Background(), mode, args[0], args[1])
		if err != nil {
			return fmt.Errorf("failed to add glossary entry: %w", err)
		}
		fmt.Printf("Added %s: [%s] %q -> %q\n", id, mode, args[0], args[1])
		return nil
	},
}

var glossaryDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a glossary entry by ID",
	Long:  `Delete a glossary entry by its ID (shown in "simplylegal glossary list").`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		if err := db.DeleteGlossaryTerm(context.Background(), args[0]); err != nil {
			return fmt.Errorf("failed to delete glossary entry: %w", err)
		}
		fmt.Printf("Deleted glossary entry: %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(glossaryCmd)

	glossaryListCmd.Flags().StringVarP(&glossaryListMode, "mode", "m", "", "Filter by mode (legal or oldEnglish)")
	glossaryAddCmd.Flags().StringVarP(&glossaryAddMode, "mode", "m", string(internal.ModeLegal), "Mode the entry applies to")

	glossaryCmd.AddCommand(glossaryListCmd)
	glossaryCmd.AddCommand(glossaryAddCmd)
	glossaryCmd.AddCommand(glossaryDeleteCmd)
}
