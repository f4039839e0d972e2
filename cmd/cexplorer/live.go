package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cexplorer/internal/eventloop"
	"cexplorer/internal/session"
	"cexplorer/internal/ui"
)

var (
	liveUI       string
	liveAutoSave time.Duration
)

var liveCmd = &cobra.Command{
	Use:   "live [document]",
	Short: "Edit a source and recompile it as you type",
	Long: `live opens a settings document (or the default one) and keeps every compiler
in it recompiling 500ms after the last edit. Without a terminal it prints the
first result of every compiler and exits.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := readUIMode(liveUI)
		if err != nil {
			return err
		}
		interactive := shouldUseTUI(mode)

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()
		log := a.log
		if interactive && !loggingToFile(cmd) {
			// the terminal belongs to the UI
			log = zap.NewNop()
		}

		ctx, cancel := signal.NotifyContext(commandContext(cmd), os.Interrupt)
		defer cancel()

		loop := eventloop.New(nil)
		feed := ui.NewFeed()
		sess := session.New(session.Options{
			Loop:   loop,
			Client: a.client,
			Fill:   a.catalog,
			Config: a.cfg,
			Logger: log.Named("session"),
			Ctx:    ctx,
			Sink:   feed,
		})
		feed.Bind(sess)

		path := ""
		if len(args) == 1 {
			path = args[0]
			err = sess.LoadFile(path)
		} else {
			err = sess.LoadDefault()
		}
		if err != nil {
			return err
		}
		text := ""
		if !sess.Empty() {
			text = sess.Document().Sources.Items()[0].Text.VolatileValue()
		}
		if liveAutoSave > 0 && path != "" {
			scheduleAutoSave(loop, sess, path+".autosave", liveAutoSave, log)
		}

		loopErr := make(chan error, 1)
		go func() { loopErr <- loop.Run(ctx) }()

		if interactive {
			model := ui.NewLiveModel(loop, sess, feed, text, path)
			_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			if errors.Is(err, tea.ErrProgramKilled) {
				err = nil
			}
			// releases the model's pending read
			feed.Close()
		} else {
			err = printFirstResults(ctx, cmd, loop, sess, feed)
		}

		closed := make(chan error, 1)
		loop.Post(func() { closed <- sess.Close() })
		select {
		case cerr := <-closed:
			if cerr != nil {
				log.Error("failed to keep the document as default", zap.Error(cerr))
			}
		case <-time.After(5 * time.Second):
			log.Warn("session did not close in time")
		}
		loop.Close()
		if lerr := <-loopErr; lerr != nil && !errors.Is(lerr, eventloop.ErrClosed) && !errors.Is(lerr, context.Canceled) {
			log.Debug("loop stopped", zap.Error(lerr))
		}
		return err
	},
}

func init() {
	liveCmd.Flags().StringVar(&liveUI, "ui", "auto", "interactive UI (auto|on|off)")
	liveCmd.Flags().DurationVar(&liveAutoSave, "autosave", 0, "write unsaved edits next to the document at this interval (0 = off)")
}

func loggingToFile(cmd *cobra.Command) bool {
	p, _ := cmd.Root().PersistentFlags().GetString("log-file")
	return p != ""
}

func scheduleAutoSave(loop *eventloop.Loop, sess *session.Session, path string, every time.Duration, log *zap.Logger) {
	var tick func()
	tick = func() {
		if sess.IsModified() {
			if err := sess.AutoSave(path); err != nil {
				log.Warn("autosave failed", zap.String("path", path), zap.Error(err))
			}
		}
		loop.AfterFunc(every, tick)
	}
	loop.AfterFunc(every, tick)
}

// printFirstResults waits until every compiler of the session delivered a
// result and prints them in document order.
func printFirstResults(ctx context.Context, cmd *cobra.Command, loop *eventloop.Loop, sess *session.Session, feed *ui.Feed) error {
	want := make(chan int, 1)
	loop.Post(func() { want <- len(sess.All()) })
	var pending int
	select {
	case pending = <-want:
	case <-ctx.Done():
		return ctx.Err()
	}
	seen := make(map[string]ui.CompilerUpdate)
	for len(seen) < pending {
		msg, ok := feed.Next(ctx)
		if !ok {
			return ctx.Err()
		}
		// the view only holds a model once a result was applied
		if u, isUpdate := msg.(ui.CompilerUpdate); isUpdate && u.HasModel {
			seen[u.Target] = u
		}
	}
	out := cmd.OutOrStdout()
	order := make(chan []string, 1)
	loop.Post(func() {
		var targets []string
		for _, cc := range sess.All() {
			targets = append(targets, cc.Target)
		}
		order <- targets
	})
	for _, target := range <-order {
		u, ok := seen[target]
		if !ok {
			continue
		}
		fmt.Fprintf(out, "== %s ==\n", u.Title)
		if err := printModel(out, u); err != nil {
			return err
		}
	}
	return nil
}
