package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sql-assistant/server/internal/agent/graph/conversations"
	"github.com/sql-assistant/server/internal/agent/model"
	errx "github.com/sql-assistant/server/internal/core/error"
	"github.com/sql-assistant/server/internal/database"
)

var askFlags struct {
	showSQL  bool
	noViz    bool
	chartDir string
	maxRows  int
	params   model.ConnectionParams
}

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Chat with the database in the terminal",
	Long: "Connects to the MySQL database from MYSQL_* (or the flags) and answers questions read from stdin.\n" +
		"Type /clear to start over and exit to quit.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, appCfg)
		if err != nil {
			return err
		}
		defer a.Close()

		id := uuid.NewString()
		m, err := a.databases.Connect(ctx, id, askFlags.params)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✅ Connected to %s\n\n", m.Name())

		if err := a.messages.EnsureGreeting(ctx, id); err != nil {
			return err
		}
		fmt.Fprintln(out, conversations.Greeting)

		opts := model.QueryOptions{ShowSQL: askFlags.showSQL, EnableViz: !askFlags.noViz}
		in := bufio.NewScanner(cmd.InOrStdin())
		in.Buffer(make([]byte, 64*1024), 1024*1024)
		charts := 0
		for {
			fmt.Fprint(out, "\n> ")
			if !in.Scan() {
				return in.Err()
			}
			line := strings.TrimSpace(in.Text())
			switch line {
			case "":
				continue
			case "exit", "quit":
				return nil
			case "/clear":
				if err := a.messages.Clear(ctx, id); err != nil {
					return err
				}
				if err := a.messages.EnsureGreeting(ctx, id); err != nil {
					return err
				}
				fmt.Fprintln(out, conversations.Greeting)
				continue
			}

			answer, err := a.runner.Invoke(ctx, model.QueryInput{ConversationID: id, Query: line, Options: opts})
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				fmt.Fprintf(out, "I encountered an error: %v (%d)\n", err, errx.StatusOf(err))
				continue
			}
			if answer.Chart != nil {
				charts++
			}
			if err := printAnswer(out, answer, charts); err != nil {
				return err
			}
		}
	},
}

func init() {
	f := askCmd.Flags()
	f.BoolVar(&askFlags.showSQL, "show-sql", false, "print the generated SQL")
	f.BoolVar(&askFlags.noViz, "no-viz", false, "disable chart generation")
	f.StringVar(&askFlags.chartDir, "chart-dir", ".", "directory for chart PNG files")
	f.IntVar(&askFlags.maxRows, "max-rows", 20, "result rows to print")
	f.StringVar(&askFlags.params.Host, "host", "", "MySQL host (default MYSQL_HOST)")
	f.IntVar(&askFlags.params.Port, "port", 0, "MySQL port (default MYSQL_PORT)")
	f.StringVar(&askFlags.params.User, "user", "", "MySQL user (default MYSQL_USER)")
	f.StringVar(&askFlags.params.Database, "database", "", "MySQL database (default MYSQL_DATABASE)")
}

func printAnswer(out io.Writer, answer *model.Answer, chartSeq int) error {
	fmt.Fprintln(out, answer.Content)

	if answer.SQL != "" {
		fmt.Fprintf(out, "\nSQL:\n%s\n", answer.SQL)
	}
	if len(answer.Columns) > 0 {
		res := &model.QueryResult{Columns: answer.Columns, Rows: answer.Rows, Truncated: answer.Truncated}
		fmt.Fprintf(out, "\n%s\n", database.FormatResult(res, askFlags.maxRows))
	}
	if answer.Chart != nil {
		path := filepath.Join(askFlags.chartDir, fmt.Sprintf("chart-%03d.png", chartSeq))
		if err := os.WriteFile(path, answer.Chart.PNG, 0o644); err != nil {
			return fmt.Errorf("write chart: %w", err)
		}
		fmt.Fprintf(out, "\n📊 %s chart %q written to %s\n", answer.Chart.Type, answer.Chart.Title, path)
	}
	fmt.Fprintf(out, "\n(cost $%.6f)\n", answer.CostUSD)
	return nil
}
