package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/JonMunkholm/facilitytables/internal/core"
	"github.com/JonMunkholm/facilitytables/internal/schema"
	"github.com/JonMunkholm/facilitytables/internal/strategy"
	"github.com/JonMunkholm/facilitytables/internal/web/view"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var errInvalid = errors.New("config is invalid")

func newValidateCmd() *cobra.Command {
	var tableType string
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a YAML or JSON table config document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}
			if tableType == "" {
				tableType = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}
			result := core.Validate(doc)
			printValidation(cmd.OutOrStdout(), args[0], tableType, result)
			if !result.Valid {
				return errInvalid
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&tableType, "table-type", "t", "", "table type for messages (default: file name)")
	return cmd
}

func readDocument(path string) (schema.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return schema.ParseJSON(data)
	}
	return schema.ParseYAML(data)
}

func printValidation(w io.Writer, path, tableType string, result core.ValidationResult) {
	if result.Valid {
		fmt.Fprintf(w, "%s %s\n", color.GreenString("✓"), path)
		return
	}
	details := core.CreateDetailedErrorMessages(result.Issues, tableType)
	fmt.Fprintf(w, "%s %s: %d issue(s), highest severity %s\n",
		color.RedString("✗"), path, len(details), severityColor(core.HighestSeverity(details)))
	for _, d := range details {
		fmt.Fprintf(w, "  [%s] %s\n", severityColor(d.Severity), d.Message)
		if d.Suggestion != "" {
			fmt.Fprintf(w, "      %s %s\n", color.CyanString("hint:"), d.Suggestion)
		}
	}
}

func severityColor(s core.Severity) string {
	switch s {
	case core.SeverityCritical:
		return color.New(color.FgRed, color.Bold).Sprint(s)
	case core.SeverityError:
		return color.New(color.FgRed).Sprint(s)
	default:
		return color.New(color.FgYellow).Sprint(s)
	}
}

func newRenderCmd(v *viper.Viper) *cobra.Command {
	var rowsPath, output string
	cmd := &cobra.Command{
		Use:   "render <table_type>",
		Short: "Render rows with the effective config of a table type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := readRows(cmd.InOrStdin(), rowsPath)
			if err != nil {
				return err
			}
			engine, err := newEngine(v)
			if err != nil {
				return err
			}
			t := engine.Render(cmd.Context(), args[0], rows)
			w := cmd.OutOrStdout()

			switch output {
			case "json":
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(t)
			case "html":
				return view.Table(t).Render(cmd.Context(), w)
			case "table":
				printRendered(w, t)
				return nil
			}
			return fmt.Errorf("unknown output %q (want table, html or json)", output)
		},
	}
	cmd.Flags().StringVarP(&rowsPath, "rows", "r", "", "JSON array of row objects; - reads stdin")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table, html or json")
	return cmd
}

func readRows(stdin io.Reader, path string) ([]schema.Row, error) {
	var data []byte
	var err error
	switch path {
	case "":
		return nil, nil
	case "-":
		data, err = io.ReadAll(stdin)
	default:
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	var rows []schema.Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("rows must be a JSON array of objects: %w", err)
	}
	return rows, nil
}

func printRendered(w io.Writer, t *core.RenderedTable) {
	fmt.Fprintf(w, "%s %s  mode=%s strategy=%s rows=%d\n",
		color.New(color.Bold).Sprint(t.TableType), color.New(color.FgHiBlack).Sprint(t.ID),
		t.Mode, t.Strategy.Strategy.Kind, t.TotalRows)
	if t.Notice != "" {
		fmt.Fprintln(w, color.New(color.FgYellow).Sprint(t.Notice))
	}
	for _, warning := range t.Warnings {
		fmt.Fprintf(w, "%s %s\n", color.YellowString("warning:"), warning)
	}

	labels := make(map[string]string, len(t.Config.Columns))
	for _, col := range t.Config.Columns {
		labels[col.Key] = col.Label
	}

	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	if len(t.Rows) == 0 {
		table.SetHeader([]string{"Row"})
		table.Append([]string{"(no rows)"})
		table.Render()
		return
	}

	header := []string{"#"}
	for _, c := range t.Rows[0].Cells {
		label := labels[c.Key]
		if label == "" {
			label = c.Key
		}
		header = append(header, label)
	}
	table.SetHeader(header)
	for _, row := range t.Rows {
		line := []string{strconv.Itoa(row.Index + 1)}
		for _, c := range row.Cells {
			if c.Hidden {
				line = append(line, "")
				continue
			}
			line = append(line, html.UnescapeString(c.Value))
		}
		table.Append(line)
	}
	table.Render()
}

func newStrategyCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "strategy <row_count>",
		Short: "Show the delivery strategy chosen for a row count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 0 {
				return fmt.Errorf("row count must be a non-negative integer, got %q", args[0])
			}
			st := newStrategist(v).Choose(n)

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Setting", "Value"})
			table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
			table.Append([]string{"strategy", string(st.Kind)})
			table.Append([]string{"row_count", strconv.Itoa(st.RowCount)})
			for _, kv := range []struct {
				name string
				val  int
			}{
				{"chunk_size", st.ChunkSize},
				{"buffer_size", st.BufferSize},
				{"page_size", st.PageSize},
				{"initial_load", st.InitialLoad},
				{"increment", st.Increment},
			} {
				if kv.val > 0 {
					table.Append([]string{kv.name, strconv.Itoa(kv.val)})
				}
			}
			if st.Kind == strategy.VirtualScroll {
				table.Append([]string{"chunks", strconv.Itoa(len(strategy.VirtualChunks(n, st)))})
			}
			table.Render()
			return nil
		},
	}
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of a table config document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(schema.JSONSchema())
		},
	}
}

func newTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List registered table types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetAutoFormatHeaders(false)
			table.SetHeader([]string{"Type", "Group", "Label", "Columns"})
			for _, def := range core.All() {
				table.Append([]string{
					def.Info.Key,
					def.Info.Group,
					def.Info.Label,
					strconv.Itoa(len(def.Defaults().Columns)),
				})
			}
			table.Render()
			return nil
		},
	}
}
