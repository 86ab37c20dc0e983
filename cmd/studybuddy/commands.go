package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"github.com/conorfennell/studybuddy/internal/domain"
	"github.com/conorfennell/studybuddy/internal/srs"
	"github.com/conorfennell/studybuddy/internal/study"
)

const maxTextWidth = 60

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Import questions from every configured source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			reports, syncErr := a.svc.Sync(cmd.Context())
			out := cmd.OutOrStdout()
			for _, r := range reports {
				fmt.Fprintf(out, "%s: %d parsed, %d new, %d removed, %d problems\n",
					r.Path, r.Parsed, r.Inserted, r.Orphaned, r.Errors)
			}
			return syncErr
		},
	}
}

func newSourceCmd() *cobra.Command {
	sourceCmd := &cobra.Command{
		Use:   "source",
		Short: "Manage question bank sources",
	}

	sourceCmd.AddCommand(&cobra.Command{
		Use:   "add <path|git-url>",
		Short: "Add a local directory or git repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			src, err := a.svc.AddSource(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s source %s (%s)\n", src.Type, src.Path, src.ID)
			return nil
		},
	})

	sourceCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			sources, err := a.svc.ListSources(cmd.Context())
			if err != nil {
				return err
			}
			return printSources(cmd.OutOrStdout(), sources)
		},
	})

	sourceCmd.AddCommand(&cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a source and the questions imported from it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.svc.RemoveSource(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed source %s\n", args[0])
			return nil
		},
	})

	return sourceCmd
}

func newDueCmd() *cobra.Command {
	var (
		subject        string
		topics         []string
		importantFirst bool
		randomize      bool
		limit          int
	)
	cmd := &cobra.Command{
		Use:   "due",
		Short: "Show the review queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			subjectID, err := resolveSubject(cmd.Context(), a.svc, subject)
			if err != nil {
				return err
			}
			due, err := a.svc.Due(cmd.Context(),
				srs.Filter{SubjectID: subjectID, Topics: topics},
				srs.Order{ImportantFirst: importantFirst, Randomize: randomize},
			)
			if err != nil {
				return err
			}
			if limit > 0 && len(due) > limit {
				due = due[:limit]
			}
			return printQuestions(cmd.OutOrStdout(), due, a.svc.Now())
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "subject name or id")
	cmd.Flags().StringSliceVar(&topics, "topic", nil, "topic name, repeatable")
	cmd.Flags().BoolVar(&importantFirst, "important-first", false, "list important questions first in each group")
	cmd.Flags().BoolVar(&randomize, "randomize", false, "shuffle questions within each group")
	cmd.Flags().IntVar(&limit, "limit", 0, "show at most this many questions")
	return cmd
}

func newRateCmd() *cobra.Command {
	var version int64
	cmd := &cobra.Command{
		Use:   "rate <question-id> <again|hard|medium|easy>",
		Short: "Rate recall of a question",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			q, err := a.svc.Rate(cmd.Context(), args[0], strings.ToLower(args[1]), version)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rated %s, next review %s (%s)\n",
				q.Rating, humanize.Time(q.NextReviewAt), q.NextReviewAt.In(a.svc.Now().Location()).Format(time.DateOnly))
			return nil
		},
	}
	cmd.Flags().Int64Var(&version, "version", 0, "fail unless the question is at this version")
	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show study statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.svc.Stats(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "Due now\t%s\n", humanize.Comma(int64(s.DueNow)))
			fmt.Fprintf(w, "Due today\t%s\n", humanize.Comma(int64(s.DueToday)))
			fmt.Fprintf(w, "Questions\t%s (%d important)\n", humanize.Comma(int64(s.TotalQuestions)), s.ImportantCount)
			fmt.Fprintf(w, "Answers\t%s\n", humanize.Comma(int64(s.TotalAnswers)))
			fmt.Fprintf(w, "Today\t%d (%+d vs yesterday)\n", s.TodayAttempts, s.Progress)
			fmt.Fprintf(w, "Retention\t%d%%\n", s.Retention)
			fmt.Fprintf(w, "Streak\t%d %s\n", s.Streak, english.PluralWord(s.Streak, "day", ""))
			return w.Flush()
		},
	}
}

// resolveSubject accepts a subject id or an exact subject name.
func resolveSubject(ctx context.Context, svc *study.Service, s string) (string, error) {
	if s == "" {
		return "", nil
	}
	subjects, err := svc.ListSubjects(ctx)
	if err != nil {
		return "", err
	}
	for _, sub := range subjects {
		if sub.ID == s || strings.EqualFold(sub.Name, s) {
			return sub.ID, nil
		}
	}
	return "", fmt.Errorf("no subject named %q", s)
}

func printQuestions(out io.Writer, questions []domain.Question, now time.Time) error {
	if len(questions) == 0 {
		fmt.Fprintln(out, "Nothing due.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tRATING\tDUE\tSUBJECT\tTOPIC\tQUESTION")
	for _, q := range questions {
		due := "now"
		if q.Rating.Rated() && q.NextReviewAt.Before(now) {
			due = humanize.RelTime(q.NextReviewAt, now, "ago", "from now")
		}
		flag := ""
		if q.Important {
			flag = "* "
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s%s\n",
			q.ID, q.Rating, due, q.SubjectName, q.TopicName, flag, truncate(q.Text, maxTextWidth))
	}
	return w.Flush()
}

func printSources(out io.Writer, sources []domain.Source) error {
	if len(sources) == 0 {
		fmt.Fprintln(out, "No sources configured.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tPATH\tLAST SCANNED")
	for _, s := range sources {
		scanned := "never"
		if s.LastScanned != nil {
			scanned = humanize.Time(*s.LastScanned)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.ID, s.Type, s.Path, scanned)
	}
	return w.Flush()
}

// truncate shortens s to at most n runes on a single line.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
