package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"degree_planner/internal/evaluation"
	"degree_planner/internal/recommender"
	"degree_planner/internal/service"
	"degree_planner/internal/store"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRecommendCmd(a *app) *cobra.Command {
	var req service.RecommendRequest
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Recommend next semester's courses for a student",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			resp, err := svc.Recommend(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVar(&req.StudentID, "student", "", "student id")
	cmd.Flags().IntVar(&req.TargetSemester, "semester", 0, "target semester (default: the one after the current)")
	cmd.Flags().BoolVar(&req.Alternatives, "alternatives", false, "also solve the conservative and aggressive variants")
	_ = cmd.MarkFlagRequired("student")
	return cmd
}

func newPlanCmd(a *app) *cobra.Command {
	var req service.PlanRequest
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan the next semesters for a student",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			resp, err := svc.Plan(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVar(&req.StudentID, "student", "", "student id")
	cmd.Flags().IntVar(&req.Semesters, "semesters", 0, "semesters to plan (default planner.horizon)")
	_ = cmd.MarkFlagRequired("student")
	return cmd
}

type analysis struct {
	StudentID    string                        `json:"student_id"`
	Progress     *recommender.Progress         `json:"progress"`
	Bottlenecks  []recommender.Bottleneck      `json:"bottlenecks"`
	CriticalPath *service.CriticalPathResponse `json:"critical_path,omitempty"`
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var studentID, target string
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Show degree progress, bottlenecks and optionally the critical path to a course",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st, svc, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			out := analysis{StudentID: studentID}
			if out.Progress, err = svc.Progress(ctx, studentID); err != nil {
				return err
			}
			if out.Bottlenecks, err = svc.Bottlenecks(ctx, studentID); err != nil {
				return err
			}
			if target != "" {
				out.CriticalPath, err = svc.CriticalPath(ctx, studentID, target)
				if out.CriticalPath == nil {
					return err
				}
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
				}
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&studentID, "student", "", "student id")
	cmd.Flags().StringVar(&target, "target", "", "course to compute the critical path to")
	_ = cmd.MarkFlagRequired("student")
	return cmd
}

func newEvaluateCmd(a *app) *cobra.Command {
	var (
		workers int
		csvPath string
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Compare recommendations against baselines for every student",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			report, err := svc.Evaluate(cmd.Context(), workers)
			if err != nil {
				return err
			}
			if csvPath != "" {
				if err := writeReportCSV(csvPath, report); err != nil {
					return err
				}
				a.logger.Info("Wrote evaluation report", "path", csvPath)
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent students (default evaluation.workers)")
	cmd.Flags().StringVar(&csvPath, "csv", "", "also write per-student results to this CSV file")
	return cmd
}

func writeReportCSV(path string, report *evaluation.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := evaluation.WriteCSV(f, report); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func newImportCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load courses, prerequisites and students from a YAML fixture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			f, err := store.LoadFixture(file)
			if err != nil {
				return err
			}
			st, err := store.Open(ctx, a.cfg.DB.Path)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.ImportFixture(ctx, f); err != nil {
				return err
			}
			summary := map[string]any{
				"status":        "success",
				"courses":       len(f.Courses),
				"prerequisites": len(f.Prerequisites),
				"students":      len(f.Students),
			}
			a.logger.Info("Imported fixture", "file", file, "courses", len(f.Courses), "students", len(f.Students))
			return printJSON(cmd.OutOrStdout(), summary)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "fixture YAML file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
