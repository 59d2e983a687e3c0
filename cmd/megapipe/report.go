package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dlops-io/mega-pipeline-aws/internal/pipeline"
	"github.com/jedib0t/go-pretty/v6/text"
)

var (
	colorOK     = text.Colors{text.FgGreen}
	colorFailed = text.Colors{text.FgRed, text.Bold}
	colorMuted  = text.Colors{text.FgHiBlack}
)

func printRunReport(out io.Writer, report pipeline.RunReport) {
	color := shouldColorize(out)

	rows := [][]string{{
		report.Stage,
		colorize(color, strconv.Itoa(report.ProcessedCount()), colorOK),
		colorize(color, strconv.Itoa(report.SkippedCount()), colorMuted),
		failedCount(color, len(report.Failures)),
	}}

	fmt.Fprintln(out, renderTable(runColumns, rows))

	printFailures(out, color, report.Failures)
}

func printSyncReport(out io.Writer, direction string, report pipeline.SyncReport) {
	color := shouldColorize(out)

	rows := [][]string{{
		direction,
		report.Kind,
		colorize(color, strconv.Itoa(len(report.Transferred)), colorOK),
		failedCount(color, len(report.Failures)),
	}}

	fmt.Fprintln(out, renderTable(syncColumns, rows))

	printFailures(out, color, report.Failures)
}

func printFailures(out io.Writer, color bool, failures []pipeline.Failure) {
	if len(failures) == 0 {
		return
	}

	rows := make([][]string, 0, len(failures))
	for _, failure := range failures {
		retry := "no"
		if pipeline.IsRetryable(failure.Err) {
			retry = "yes"
		}

		rows = append(rows, []string{
			colorize(color, failure.ID, colorFailed),
			retry,
			failure.Err.Error(),
		})
	}

	fmt.Fprintln(out, renderTable(failureColumns, rows))
}

func failedCount(color bool, count int) string {
	value := strconv.Itoa(count)
	if count == 0 {
		return value
	}

	return colorize(color, value, colorFailed)
}
