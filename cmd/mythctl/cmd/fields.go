package cmd

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/gomyth/pkg/mythtv/catalog"
	"github.com/jmylchreest/gomyth/pkg/mythtv/models"
	"github.com/jmylchreest/gomyth/pkg/mythtv/versioning"
)

var fieldsVersion int

var fieldsCmd = &cobra.Command{
	Use:   "fields [set] [field]",
	Short: "Show the field layout of a field set",
	Long: `Show the positional field layout of a MythTV field set at a protocol or
schema version. Without a set name, list every known set. With a field
name, show the versions that field exists in.

  mythctl fields ProgramInfo --version 75
  mythctl fields RecordingRule --version 1307
  mythctl fields DriveInfo TOTAL_SPACE_HIGH`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat := models.NewCatalog()
		v := versioning.Version(fieldsVersion)
		if len(args) == 0 {
			return listSets(cmd.OutOrStdout(), cat, v)
		}
		if len(args) == 2 {
			return showField(cmd.OutOrStdout(), cat, args[0], args[1], v, outputFormat(cmd))
		}
		return showFields(cmd.OutOrStdout(), cat, args[0], v, outputFormat(cmd))
	},
}

func init() {
	fieldsCmd.Flags().IntVar(&fieldsVersion, "version", int(versioning.Latest), "protocol or schema version (-1 for latest)")
	rootCmd.AddCommand(fieldsCmd)
}

func listSets(w io.Writer, cat *catalog.Catalog, v versioning.Version) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "SET\tDOMAIN\tFIELDS\tTABLE")
	keys := cat.Keys()
	slices.Sort(keys)
	for _, key := range keys {
		set, _ := cat.FieldSet(key)
		table := set.Table
		if table == "" {
			table = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", key, set.Domain, cat.Count(key, v), table)
	}
	return tw.Flush()
}

type fieldRow struct {
	Position int    `json:"position"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Group    string `json:"group,omitempty"`
	Column   string `json:"column,omitempty"`
	Default  string `json:"default,omitempty"`
	Range    string `json:"range"`
}

func showFields(w io.Writer, cat *catalog.Catalog, key string, v versioning.Version, format string) error {
	set, ok := cat.FieldSet(key)
	if !ok {
		return fmt.Errorf("unknown field set %q", key)
	}

	fields := cat.ValidFields(key, v)
	rows := make([]fieldRow, len(fields))
	for i, f := range fields {
		rows[i] = fieldRow{
			Position: i,
			Name:     f.Name,
			Type:     f.Type.String(),
			Group:    f.Group,
			Range:    f.Range.String(),
		}
		if set.Domain == catalog.DomainSchema {
			rows[i].Column = f.ColumnName()
		}
		if f.HasDefault() {
			rows[i].Default = *f.Default
		}
	}

	if format == "json" {
		return writeJSON(w, rows)
	}

	fmt.Fprintf(w, "%s at %s version %s: %d fields\n", key, set.Domain, v, len(rows))
	tw := newTable(w)
	fmt.Fprintln(tw, "POS\tNAME\tTYPE\tGROUP\tCOLUMN\tDEFAULT\tRANGE")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Position, r.Name, r.Type, dash(r.Group), dash(r.Column), dash(r.Default), r.Range)
	}
	return tw.Flush()
}

type fieldLifetime struct {
	Set     string `json:"set"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Range   string `json:"range"`
	Since   int    `json:"since"`
	Removed *int   `json:"removed,omitempty"`
	Version string `json:"version"`
	Valid   bool   `json:"valid"`
}

func showField(w io.Writer, cat *catalog.Catalog, key, name string, v versioning.Version, format string) error {
	if _, ok := cat.FieldSet(key); !ok {
		return fmt.Errorf("unknown field set %q", key)
	}
	f, ok := cat.Declared(key, name)
	if !ok {
		return fmt.Errorf("field set %s has no field %q", key, name)
	}

	lt := fieldLifetime{
		Set:     key,
		Name:    f.Name,
		Type:    f.Type.String(),
		Range:   f.Range.String(),
		Since:   int(f.Range.From),
		Version: v.String(),
		Valid:   f.Range.Contains(v),
	}
	if f.Range.Bounded() {
		to := int(f.Range.To)
		lt.Removed = &to
	}

	if format == "json" {
		return writeJSON(w, lt)
	}

	fmt.Fprintf(w, "%s.%s (%s)\n", lt.Set, lt.Name, lt.Type)
	fmt.Fprintf(w, "  since:   %d\n", lt.Since)
	if lt.Removed != nil {
		fmt.Fprintf(w, "  removed: %d\n", *lt.Removed)
	} else {
		fmt.Fprintln(w, "  removed: -")
	}
	present := "no"
	if lt.Valid {
		present = "yes"
	}
	fmt.Fprintf(w, "  present at %s: %s\n", lt.Version, present)
	return nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
