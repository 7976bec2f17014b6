package main

import (
	"bufio"
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"finbook/internal/audit"
	"finbook/internal/config"
	"finbook/internal/db"
	"finbook/internal/logging"
	"finbook/internal/migration"
	"finbook/internal/models"
	"finbook/internal/schema"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "sync":
		if err := syncCmd(args); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "groups":
		if err := groupsCmd(args); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "show":
		if err := showCmd(args); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "apply":
		if err := replayCmd(args, migration.DirectionApply); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "rollback":
		if err := replayCmd(args, migration.DirectionRollback); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`schemactl commands:
  sync      - reshape the database to match the declared models
  groups    - list recorded migration groups
  show      - print one group with its statements and entries
  apply     - replay a group's up statements
  rollback  - replay a group's down statements

Connection settings come from the environment (FINBOOK_DB_DSN).
Flags are command specific; run "<cmd> -h" for details.`)
}

func syncCmd(args []string) error {
	fs := flagSet("sync")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, activity, err := open(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := activity.EnsureTable(ctx); err != nil {
		return err
	}
	if err := migration.EnsureTables(ctx, pool); err != nil {
		return err
	}

	recorder := migration.NewRecorder(pool, activity)
	syncer := schema.NewSynchronizer(pool, recorder, activity)
	summary, err := syncer.SyncAll(ctx, models.Registry())
	if err != nil {
		return err
	}

	fmt.Printf("sync complete: %d tables created, %d columns added, %d updated, %d removed, %d groups recorded\n",
		summary.TablesCreated, summary.ColumnsAdded, summary.ColumnsUpdated, summary.ColumnsRemoved, summary.GroupsRecorded)
	return nil
}

func groupsCmd(args []string) error {
	fs := flagSet("groups")
	limit := fs.Int("limit", 20, "number of groups to list")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, _, err := open(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	groups, err := migration.ListGroups(ctx, pool, *limit)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		fmt.Println("no migration groups recorded yet")
		return nil
	}
	for _, g := range groups {
		fmt.Printf("%d\t%s\t%s\t%d up / %d down\n",
			g.ID, g.CreatedAt.Format(time.RFC3339), g.Name, len(g.UpQueries), len(g.DownQueries))
	}
	return nil
}

func showCmd(args []string) error {
	fs := flagSet("show")
	id := fs.Int64("id", 0, "group id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id <= 0 {
		return fmt.Errorf("--id is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, _, err := open(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	group, err := migration.GetGroup(ctx, pool, *id)
	if err != nil {
		return err
	}
	entries, err := migration.ListEntries(ctx, pool, *id)
	if err != nil {
		return err
	}

	fmt.Printf("group %d: %s (recorded %s)\n", group.ID, group.Name, group.CreatedAt.Format(time.RFC3339))
	fmt.Println("up:")
	for _, q := range group.UpQueries {
		fmt.Println("  " + q)
	}
	fmt.Println("down:")
	for _, q := range group.DownQueries {
		fmt.Println("  " + q)
	}
	if len(entries) > 0 {
		fmt.Println("entries:")
		for _, e := range entries {
			fmt.Printf("  [%s] %s (%s.%s)\n", e.Operation, e.Name, e.TableName, e.ColumnName)
		}
	}
	return nil
}

func replayCmd(args []string, direction migration.Direction) error {
	fs := flagSet(strings.ToLower(string(direction)))
	id := fs.Int64("id", 0, "group id")
	approve := fs.Bool("approve", false, "skip approval prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id <= 0 {
		return fmt.Errorf("--id is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, activity, err := open(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	group, err := migration.GetGroup(ctx, pool, *id)
	if err != nil {
		return err
	}

	queries := group.UpQueries
	if direction == migration.DirectionRollback {
		queries = group.DownQueries
	}
	fmt.Printf("About to %s group %d (%s), %d statements:\n", strings.ToLower(string(direction)), group.ID, group.Name, len(queries))
	for _, q := range queries {
		fmt.Println("  " + q)
	}
	if !*approve {
		if ok, err := promptYes("Type YES to proceed: "); err != nil {
			return err
		} else if !ok {
			return fmt.Errorf("aborted by user")
		}
	}

	executor := migration.NewExecutor(pool, activity)
	if err := executor.ExecuteGroup(ctx, *id, direction); err != nil {
		return err
	}
	fmt.Println("Replay completed.")
	return nil
}

func open(ctx context.Context) (*sql.DB, *audit.Log, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	pool, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.NewTextLogger(cfg.LogLevel)
	return pool, audit.NewLog(pool, logger), nil
}

func promptYes(prompt string) (bool, error) {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	return strings.EqualFold(strings.TrimSpace(line), "YES"), nil
}

func flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stdout)
	return fs
}
