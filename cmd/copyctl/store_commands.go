package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/certified-copy-api/internal/models"
	"github.com/noah-isme/certified-copy-api/internal/service"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the statistics aggregate",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureStore(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total applications: %d\n", stats.TotalApplications)
			fmt.Fprintf(out, "Approved:           %d\n", stats.TotalApproved)
			fmt.Fprintf(out, "Rejected:           %d\n", stats.TotalRejected)
			printDailyProcessed(out, stats.DailyProcessed)
			return nil
		},
	}
}

func printDailyProcessed(out io.Writer, daily map[string]int) {
	if len(daily) == 0 {
		fmt.Fprintln(out, "Processed per day: none")
		return
	}
	days := make([]string, 0, len(daily))
	for day := range daily {
		days = append(days, day)
	}
	sort.Strings(days)
	rows := make([][]string, 0, len(days))
	for _, day := range days {
		rows = append(rows, []string{day, strconv.Itoa(daily[day])})
	}
	fmt.Fprintln(out, renderTable([]string{"Day", "Processed"}, rows, []columnAlignment{alignLeft, alignRight}))
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var statusFlag, userFlag string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List applications",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureStore(cmd.Context())
			if err != nil {
				return err
			}
			filter := models.ApplicationFilter{ApplicantUsername: strings.TrimSpace(userFlag)}
			for _, raw := range strings.Split(statusFlag, ",") {
				if raw = strings.TrimSpace(raw); raw == "" {
					continue
				}
				status := models.ApplicationStatus(strings.ToLower(raw))
				if !status.Valid() {
					return fmt.Errorf("unknown status %q", raw)
				}
				filter.Statuses = append(filter.Statuses, status)
			}

			apps, err := store.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(apps) == 0 {
				fmt.Fprintln(out, "No applications")
				return nil
			}
			rows := make([][]string, 0, len(apps))
			for _, app := range apps {
				rows = append(rows, []string{
					app.ID,
					app.ApplicantName,
					app.CaseReference(),
					string(app.Status),
					app.SubmittedDate.Local().Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"ID", "Applicant", "Case", "Status", "Submitted"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().StringVar(&statusFlag, "status", "", "Comma separated statuses to include")
	cmd.Flags().StringVar(&userFlag, "user", "", "Only applications of this applicant username")
	return cmd
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var formatFlag, outFlag string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render the application register as CSV or PDF",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureStore(cmd.Context())
			if err != nil {
				return err
			}
			file, err := service.NewExportService(store, nil, ctx.log()).Applications(cmd.Context(), formatFlag, models.ApplicationFilter{})
			if err != nil {
				return err
			}
			target := outFlag
			if target == "" {
				target = file.Filename
			}
			if target == "-" {
				_, err = cmd.OutOrStdout().Write(file.Data)
				return err
			}
			if dir := filepath.Dir(target); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
			}
			if err := os.WriteFile(target, file.Data, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d applications to %s\n", file.Rows, target)
			return nil
		},
	}
	cmd.Flags().StringVar(&formatFlag, "format", "csv", "Export format (csv or pdf)")
	cmd.Flags().StringVarP(&outFlag, "out", "o", "", "Output path, - for stdout")
	return cmd
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <dump.json>",
		Short: "Replace the store contents with a browser local-storage dump",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureStore(cmd.Context())
			if err != nil {
				return err
			}
			importer, err := service.NewImportService(store, ctx.cache, ctx.log())
			if err != nil {
				return err
			}
			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			summary, err := importer.Import(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d applications (%d submitted, %d approved, %d rejected)\n",
				summary.Applications, summary.Statistics.TotalApplications, summary.Statistics.TotalApproved, summary.Statistics.TotalRejected)
			return nil
		},
	}
}

func newDumpCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Write the store contents as a browser local-storage dump",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureStore(cmd.Context())
			if err != nil {
				return err
			}
			importer, err := service.NewImportService(store, ctx.cache, ctx.log())
			if err != nil {
				return err
			}
			return importer.Dump(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func newSeedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Add the demo applications when the store is empty",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.ensureStore(cmd.Context())
			if err != nil {
				return err
			}
			created, err := service.NewApplicationService(service.ApplicationServiceParams{Store: store, Cache: ctx.cache, Logger: ctx.log()}).SeedDemo(cmd.Context())
			if err != nil {
				return err
			}
			if created == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Store already has applications; nothing seeded")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d demo applications\n", created)
			return nil
		},
	}
}
