package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/teranos/screencap/config"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show the capture settings",
		Args:  cobra.NoArgs,
		RunE:  runSettingsList,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one capture setting",
		Long: `Set validates value the way the settings panel does: numbers are clamped
into range or snapped to the nearest allowed value, and input that cannot be
parsed keeps the current value.`,
		Args: cobra.ExactArgs(2),
		RunE: runSettingsSet,
	})
	return cmd
}

func runSettingsList(cmd *cobra.Command, args []string) error {
	s, err := openSettingsSession()
	if err != nil {
		return err
	}
	defer s.Close()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	for _, st := range s.policy.Settings() {
		fmt.Fprintf(w, "%s\t%v\t%s\n", st.Key, s.policy.Value(st.Key), st.Label)
	}
	return w.Flush()
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	s, err := openSettingsSession()
	if err != nil {
		return err
	}
	defer s.Close()

	v, err := s.policy.Apply(args[0], args[1])
	if err != nil {
		return err
	}
	if err := s.store.Save(); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", args[0], v)
	return nil
}

func openSettingsSession() (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return openSession(cfg, afero.NewOsFs())
}
