package cmd

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/tasktimer/internal/app"
	"github.com/nhle/tasktimer/internal/idgen"
	"github.com/nhle/tasktimer/internal/model"
	"github.com/nhle/tasktimer/internal/notify"
	"github.com/nhle/tasktimer/internal/settings"
	"github.com/nhle/tasktimer/internal/timelog"
	"github.com/nhle/tasktimer/internal/timer"
	"github.com/nhle/tasktimer/internal/workspace"
)

func runUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := newLogger(cfg, model.ConfigDir())
	if err != nil {
		return err
	}
	defer log.Close()

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	ids := idgen.New()
	inbox := notify.NewInbox(s, log)
	svc := timelog.NewService(timer.New(), inbox, ids, timelog.WithLogger(log))
	ws := workspace.New(s, svc, inbox, ids, settings.FromConfig(cfg), log)

	m := app.New(app.Deps{
		Store:     s,
		Workspace: ws,
		Inbox:     inbox,
		Config:    cfg,
		Log:       log,

		ConfigPath: configPath(),
	})

	p := tea.NewProgram(m, tea.WithAltScreen())

	model.WatchConfig(configPath(),
		func(next *model.AppConfig) { p.Send(app.ConfigChangedMsg{Config: next}) },
		func(err error) { log.Warn("config watch", "error", err) },
	)

	log.Info("starting", "database", cfg.Database.Path)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running ui: %w", err)
	}

	// The UI stops the timer on quit; this covers a killed program loop.
	if err := ws.Close(context.Background()); err != nil {
		log.Error("closing workspace", "error", err)
	}
	return nil
}
