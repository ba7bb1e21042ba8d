package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/lastnameswayne/tinypublish/db"
	"github.com/urfave/cli/v2"
)

func historyAction(c *cli.Context) error {
	store, err := openHistory(c.String("history"))
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Recent(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}
	printHistory(os.Stdout, runs)
	return nil
}

func printHistory(w io.Writer, runs []db.PublishRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No publish runs recorded yet.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tSTARTED\tREFERENCE\tLAST STEP\tTOOK")
	for _, r := range runs {
		mark := green("✓")
		if r.Error != "" {
			mark = red("✗")
		}
		took := (time.Duration(r.DurationMs) * time.Millisecond).Round(100 * time.Millisecond)
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s:%s\t%s\t%s\n",
			mark, r.ID, r.StartedAt.Local().Format(time.DateTime), r.Repository, r.Tag, r.Step, took)
	}
	tw.Flush()
}

func openHistory(path string) (*db.Store, error) {
	expanded, err := expandPath(path)
	if err != nil {
		return nil, err
	}
	return db.Open(expanded)
}

// lazyHistory opens the database on the first record, so a run that never
// gets that far leaves nothing on disk.
type lazyHistory struct {
	path  string
	store *db.Store
	err   error
}

func (h *lazyHistory) LogPublish(ctx context.Context, r db.PublishRecord) (int64, error) {
	if h.store == nil && h.err == nil {
		h.store, h.err = openHistory(h.path)
	}
	if h.err != nil {
		return 0, h.err
	}
	return h.store.LogPublish(ctx, r)
}

func (h *lazyHistory) Close() error {
	if h.store == nil {
		return nil
	}
	return h.store.Close()
}
