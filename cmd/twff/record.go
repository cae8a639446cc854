package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"twff/internal/config"
	"twff/internal/container"
	"twff/internal/recorder"
	"twff/internal/session"
	"twff/internal/store"
)

func cmdRecord(cfg *config.Config, args []string) int {
	fs := flag.NewFlagSet("record", flag.ExitOnError)
	contentPath := fs.String("content", "", "content file to watch")
	userID := fs.String("user", "anonymous", "anonymous user identifier for the session")
	resume := fs.String("resume", "", "resume the open session with this ID")
	logOut := fs.StringP("output", "o", "", "where to write the process log (default: <content>.process-log.json)")
	fs.Parse(args)

	if *contentPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: twff record --content <file> [--user id] [--resume session-id]")
		return 2
	}
	dest := *logOut
	if dest == "" {
		dest = *contentPath + ".process-log.json"
	}

	journal, err := store.Open(cfg.Recorder.JournalPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	defer journal.Close()

	var sess *session.Session
	if *resume != "" {
		if sess, err = journal.LoadSession(*resume); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 2
		}
	} else {
		if sess, err = session.New(*userID, container.ContentPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 2
		}
		if err := journal.SaveSession(sess); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 2
		}
		for i, ev := range sess.Events {
			if err := journal.AppendEvent(sess.SessionID, i, ev); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return 2
			}
		}
	}

	rec, err := recorder.New(*contentPath, sess,
		recorder.WithJournal(journal),
		recorder.WithDebounce(cfg.DebounceDuration()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	if err := rec.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	fmt.Printf("Recording session %s (%d events so far). Ctrl-C to finalize.\n",
		sess.SessionID, len(sess.Events))

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	<-sigs

	if err := rec.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	if err := sess.Finalize(time.Now()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	if err := journal.AppendEvent(sess.SessionID, len(sess.Events)-1, sess.Events[len(sess.Events)-1]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	if err := journal.SaveSession(sess); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	out, err := sess.Encode()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	if err := os.WriteFile(dest, out, 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	fmt.Printf("Finalized %s: %d events, head %.16s…\n",
		dest, len(sess.Events), sess.Tip())
	return 0
}
