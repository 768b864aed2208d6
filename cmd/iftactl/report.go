package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/StamperDavid/rapid-crm-sub009/internal/export"
	"github.com/StamperDavid/rapid-crm-sub009/internal/service"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	reportStrategy string
	reportFormat   string
	reportOut      string
)

var reportCmd = &cobra.Command{
	Use:   "report <client-id> <year> <quarter>",
	Short: "Compute a client's quarterly IFTA report",
	Long: `Compute a client's quarterly IFTA report and write it for filing.

Formats are csv, xlsx and json. Spreadsheet formats are written to --out,
which may be a directory (the file name is derived from the license and
period) or "-" for stdout. json always goes to stdout unless --out names a file.`,
	Example: `  iftactl report 4f0c... 2024 3 --format xlsx --out ./filings`,
	Args:    cobra.ExactArgs(3),
	RunE:    runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportStrategy, "strategy", "", "MPG strategy: fleet, jurisdiction or vehicle (default from config)")
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "csv", "Output format: csv, xlsx or json")
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", ".", "Output directory, file path, or - for stdout")
}

func runReport(cmd *cobra.Command, args []string) error {
	year, err := strconv.Atoi(args[1])
	if err != nil {
		return eris.Errorf("invalid year %q", args[1])
	}
	quarter, err := strconv.Atoi(args[2])
	if err != nil {
		return eris.Errorf("invalid quarter %q", args[2])
	}
	req := service.ReportRequest{ClientID: args[0], Year: year, Quarter: quarter, Strategy: reportStrategy}
	svc := reportService()

	if reportFormat == "json" {
		report, err := svc.GenerateReport(cmd.Context(), req)
		if err != nil {
			return err
		}
		body, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return eris.Wrap(err, "encode report")
		}
		body = append(body, '\n')
		if reportOut == "." || reportOut == "-" {
			_, err = cmd.OutOrStdout().Write(body)
			return err
		}
		return writeFile(cmd, reportOut, body)
	}

	format, err := export.ParseFormat(reportFormat)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	result, err := svc.ExportReport(cmd.Context(), req, format, &buf)
	if err != nil {
		return err
	}

	if reportOut == "-" {
		_, err = cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}
	path := reportOut
	if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
		path = filepath.Join(path, result.Filename)
	}
	return writeFile(cmd, path, buf.Bytes())
}

func writeFile(cmd *cobra.Command, path string, body []byte) error {
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return eris.Wrapf(err, "write %s", path)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	return nil
}
