package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-report-portal/internal/backend"
	"github.com/noah-isme/sma-report-portal/internal/models"
	"github.com/noah-isme/sma-report-portal/internal/service"
	"github.com/noah-isme/sma-report-portal/pkg/config"
	"github.com/noah-isme/sma-report-portal/pkg/export"
	"github.com/noah-isme/sma-report-portal/pkg/logger"
	"github.com/noah-isme/sma-report-portal/pkg/storage"
	"github.com/noah-isme/sma-report-portal/pkg/validation"
)

type options struct {
	studentID int64
	variant   string
	token     string
	role      string
	remove    string
	yes       bool
	pdf       bool
	csv       bool
	outDir    string
	timeout   time.Duration
}

func main() {
	var opts options
	flag.Int64Var(&opts.studentID, "student", 0, "Student ID")
	flag.StringVar(&opts.variant, "variant", service.VariantFull, "Report variant: full, guardian or grades")
	flag.StringVar(&opts.token, "token", os.Getenv("PORTAL_TOKEN"), "Bearer credential forwarded to the backend")
	flag.StringVar(&opts.role, "role", os.Getenv("PORTAL_ROLE"), "Viewer role, e.g. coordinator or professor")
	flag.StringVar(&opts.remove, "delete", "", "Record to delete, as collection:id (e.g. warnings:12)")
	flag.BoolVar(&opts.yes, "yes", false, "Confirm the delete without prompting")
	flag.BoolVar(&opts.pdf, "pdf", false, "Download the report card PDF")
	flag.BoolVar(&opts.csv, "csv", false, "Export the grade table as CSV")
	flag.StringVar(&opts.outDir, "out", "./exports", "Directory for downloaded files")
	flag.DurationVar(&opts.timeout, "timeout", 30*time.Second, "Overall timeout")
	flag.Parse()

	if opts.studentID <= 0 {
		log.Fatal("-student is required")
	}
	if opts.token == "" {
		log.Fatal("-token or PORTAL_TOKEN is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	if err := run(ctx, cfg, logr, opts, os.Stdin, os.Stdout); err != nil {
		logr.Error("reportctl failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger, opts options, in io.Reader, out io.Writer) error {
	reportOpts, err := service.ReportOptionsFor(opts.variant)
	if err != nil {
		return err
	}
	viewer := service.Viewer{Credential: opts.token, Role: models.ParseRole(opts.role)}

	client := backend.NewClient(cfg.Backend, nil, nil, logr)
	reports := service.NewReportService(client, nil, logr)
	mutations := service.NewMutationService(client, validation.New(), logr)

	view := service.NewReportView(reports, mutations, viewer, opts.studentID, reportOpts)
	defer view.Close()

	model, err := view.Load(ctx)
	if err != nil {
		return err
	}
	printReport(out, model)

	if opts.remove != "" {
		if err := deleteRecord(ctx, view, opts, in, out); err != nil {
			return err
		}
	}

	if !opts.pdf && !opts.csv {
		return nil
	}
	dir, err := storage.NewExportDir(opts.outDir)
	if err != nil {
		return err
	}
	exports := service.NewExportService(reports, client, service.ExportConfig{PDFFallback: cfg.Reports.PDFFallback}, logr, export.NewCSVExporter(), export.NewPDFExporter())
	if opts.pdf {
		if err := download(ctx, dir, out, viewer, opts.studentID, exports.ReportPDF); err != nil {
			return err
		}
	}
	if opts.csv {
		if err := download(ctx, dir, out, viewer, opts.studentID, exports.GradesCSV); err != nil {
			return err
		}
	}
	return nil
}

func deleteRecord(ctx context.Context, view *service.ReportView, opts options, in io.Reader, out io.Writer) error {
	collection, id, err := parseTarget(opts.remove)
	if err != nil {
		return err
	}
	candidate, err := view.RequestDelete(collection, id)
	if err != nil {
		return err
	}
	if !opts.yes && !confirm(in, out, fmt.Sprintf("Delete %s? [y/N] ", candidate.Label)) {
		view.CancelDelete()
		fmt.Fprintln(out, "cancelled")
		return nil
	}
	if err := view.ConfirmDelete(ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "deleted %s %d\n\n", collection, id)
	printReport(out, view.Model())
	return nil
}

func parseTarget(raw string) (models.Collection, int64, error) {
	name, rawID, ok := strings.Cut(raw, ":")
	if !ok {
		return "", 0, fmt.Errorf("delete target %q must look like collection:id", raw)
	}
	collection, ok := models.ParseCollection(name)
	if !ok {
		return "", 0, fmt.Errorf("unknown collection %q", name)
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return "", 0, fmt.Errorf("invalid record id %q", rawID)
	}
	return collection, id, nil
}

func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func download(ctx context.Context, dir *storage.ExportDir, out io.Writer, viewer service.Viewer, studentID int64, produce func(context.Context, service.Viewer, int64) (*service.ExportFile, error)) error {
	file, err := produce(ctx, viewer, studentID)
	if err != nil {
		return err
	}
	path, err := dir.Save(file.Filename, file.Body)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "saved %s (%s)\n", path, file.Source)
	return nil
}

func printReport(out io.Writer, model *service.ReportViewModel) {
	if model == nil {
		return
	}
	s := model.Student
	fmt.Fprintf(out, "%s  #%s  class %s  (%s)\n\n", s.Name, s.EnrollmentNumber, s.Class, s.Status)

	if g := model.Grades; g != nil {
		fmt.Fprintln(out, "GRADES")
		if len(g.Rows) == 0 {
			fmt.Fprintf(out, "  %s\n", g.EmptyMessage)
		} else {
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "  Subject\tN1\tN2\tN3\tN4\tAverage")
			for _, row := range g.Rows {
				fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\t%s\n", row.Subject, cell(row.N1), cell(row.N2), cell(row.N3), cell(row.N4), cell(row.Average))
			}
			tw.Flush() //nolint:errcheck
		}
		if g.UnassignedGrades > 0 {
			fmt.Fprintf(out, "  %d grade(s) with an unrecognised bimester were left out\n", g.UnassignedGrades)
		}
		fmt.Fprintln(out)
	}
	if a := model.Absences; a != nil {
		fmt.Fprintln(out, "ABSENCES")
		if model.Attendance != nil {
			fmt.Fprintf(out, "  total %d, justified %d, unjustified %d\n", model.Attendance.Total, model.Attendance.Justified, model.Attendance.Unjustified)
		}
		if len(a.Rows) == 0 {
			fmt.Fprintf(out, "  %s\n", a.EmptyMessage)
		}
		for _, row := range a.Rows {
			fmt.Fprintf(out, "  [%d] %s  %s  justified=%t\n", row.ID, row.Date, row.Subject, row.Justified)
		}
		fmt.Fprintln(out)
	}
	if w := model.Warnings; w != nil {
		fmt.Fprintln(out, "WARNINGS")
		if len(w.Rows) == 0 {
			fmt.Fprintf(out, "  %s\n", w.EmptyMessage)
		}
		for _, row := range w.Rows {
			fmt.Fprintf(out, "  [%d] %s  %s\n", row.ID, row.Date, row.Reason)
		}
		fmt.Fprintln(out)
	}
	if su := model.Suspensions; su != nil {
		fmt.Fprintln(out, "SUSPENSIONS")
		if len(su.Rows) == 0 {
			fmt.Fprintf(out, "  %s\n", su.EmptyMessage)
		}
		for _, row := range su.Rows {
			fmt.Fprintf(out, "  [%d] %s - %s (%d days)  %s\n", row.ID, row.StartDate, row.EndDate, row.Days, row.Reason)
		}
		fmt.Fprintln(out)
	}
}

func cell(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
