package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/ordo-ai/ordo/internal/adapters/state"
	"github.com/ordo-ai/ordo/internal/core"
)

var (
	logsFollow bool
	logsTail   int
)

var logsCmd = &cobra.Command{
	Use:   "logs <session-id>",
	Short: "Show a session's log entries",
	Long: `Logs prints the session's bounded log ring. With --follow, the
session file is watched and new entries stream until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "stream new log entries")
	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 0, "only show the last N entries")
	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	ctx := cmd.Context()
	sessionID := args[0]

	sess, err := a.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	logs := sess.Logs
	if logsTail > 0 && len(logs) > logsTail {
		logs = logs[len(logs)-logsTail:]
	}
	for _, entry := range logs {
		printLogEntry(entry)
	}
	if !logsFollow {
		return nil
	}

	return followLogs(a, sessionID, len(sess.Logs))
}

// followLogs watches the session file and prints entries appended after the
// given offset. Writes are atomic renames, so create events matter as much
// as writes.
func followLogs(a *app, sessionID string, seen int) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: the storage layer replaces the file on every
	// save, which would invalidate a watch on the file itself.
	if err := watcher.Add(a.cfg.Sessions.Dir); err != nil {
		return fmt.Errorf("watching %s: %w", a.cfg.Sessions.Dir, err)
	}
	target := sessionID + ".json"

	// Reload straight from disk on each change. The writer is another
	// process, so the store's in-memory cache would go stale.
	storage := state.NewJSONSessionStorage(a.cfg.Sessions.Dir)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-sigCh:
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("watch error", "error", err)
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			// Give the rename a beat to settle before reloading.
			time.Sleep(20 * time.Millisecond)
			sess, err := storage.Load(context.Background(), sessionID)
			if err != nil {
				continue
			}
			for _, entry := range sess.Logs[min(seen, len(sess.Logs)):] {
				printLogEntry(entry)
			}
			seen = len(sess.Logs)
			if sess.IsTerminal() {
				return nil
			}
		}
	}
}

func printLogEntry(entry core.LogEntry) {
	fmt.Printf("%s [%s] %s\n", entry.Time.Format("15:04:05"), entry.Level, entry.Message)
}
