package main

import (
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/teranos/screencap/config"
	"github.com/teranos/screencap/operators"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Open the interactive capture host",
		Long: `Run the demo scene in the terminal. The scene renders continuously in
the background; hotkeys capture it:

  1 / F9    screenshot as you see it, HUD included
  2 / F11   rendered screenshot at the configured resolution
  3         360 panorama
  4         rendered 3D (side-by-side)
  5         360 3D (side-by-side)
  s         settings panel

Settings edited in the panel are saved when the host exits. Edits made to
the settings file while the host runs are picked up live.`,
		Args: cobra.NoArgs,
		RunE: runInteractive,
	}
}

func runInteractive(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// The terminal belongs to the UI, so logs go to a file.
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = filepath.Join(config.ConfigDir(), "logs")
	}

	fs := afero.NewOsFs()
	s, err := openSession(cfg, fs)
	if err != nil {
		return err
	}
	defer s.Close()

	if ok, _ := afero.Exists(fs, s.store.Path()); !ok {
		if err := s.store.Save(); err != nil {
			return fmt.Errorf("failed to create settings file: %w", err)
		}
	}
	s.store.OnChange(func(key string, value any) {
		s.logger.Info("settings file changed", "setting", key, "value", value)
	})
	s.store.OnReloadError(func(err error) {
		s.logger.Warn("settings file not reloaded", "error", err.Error())
	})
	s.store.Watch()

	op := operators.NewCaptureOperator(s.host, s.ctrl).WithLogger(s.logger)
	if _, err := tea.NewProgram(op, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	if err := s.store.Save(); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d screenshot(s) saved to %s\n", len(op.Saved()), s.sink.Dir())
	return nil
}
