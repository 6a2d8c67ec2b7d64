//go:build ignore

package main

import (
	"fmt"
	"os"
	"time"

	"ArenaVault/internal/events"
	"ArenaVault/internal/storage"
)

func main() {
	if len(os.Args) != 2 && !(len(os.Args) == 3 && os.Args[1] == "-export") {
		fmt.Fprintf(os.Stderr, "Usage: %s [-export] <data_dir>\n", os.Args[0])
		os.Exit(1)
	}

	export := len(os.Args) == 3
	dir := os.Args[len(os.Args)-1]

	db, err := storage.New(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open storage: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	journal, err := events.Open(db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open journal: %v\n", err)
		os.Exit(1)
	}

	if export {
		data, err := journal.Export()
		if err != nil {
			fmt.Fprintf(os.Stderr, "export: %v\n", err)
			os.Exit(1)
		}

		os.Stdout.Write(data)
		return
	}

	entries, err := journal.Entries(0, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read entries: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s: %d events\n", dir, len(entries))

	for _, e := range entries {
		ts := time.Unix(e.At, 0).UTC().Format(time.RFC3339)
		fmt.Printf("%6d  %-20s  %s  %s\n", e.Seq, e.Kind, ts, e.Payload)
	}
}
