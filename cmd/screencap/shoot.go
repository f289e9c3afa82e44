package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/teranos/screencap"
	"github.com/teranos/screencap/config"
	"github.com/teranos/screencap/imgdiff"
)

type shootOptions struct {
	mode    string
	stereo  bool
	width   int
	height  int
	res360  int
	warmup  int
	timeout time.Duration

	baseline       string
	baselineDir    string
	updateBaseline bool
}

func newShootCmd() *cobra.Command {
	opts := &shootOptions{}
	cmd := &cobra.Command{
		Use:   "shoot",
		Short: "Render the scene headless and write one capture",
		Long: `Shoot runs the demo scene without a terminal UI and takes a single
capture. Values not given as flags come from the settings file; flag values
are corrected the same way the settings panel corrects them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShoot(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "rendered", "capture mode: simple, rendered or 360")
	cmd.Flags().BoolVar(&opts.stereo, "stereo", false, "side-by-side 3D capture")
	cmd.Flags().IntVar(&opts.width, "width", 0, "rendered width in pixels (default from settings)")
	cmd.Flags().IntVar(&opts.height, "height", 0, "rendered height in pixels (default from settings)")
	cmd.Flags().IntVar(&opts.res360, "resolution-360", 0, "360 panorama width (default from settings)")
	cmd.Flags().IntVar(&opts.warmup, "warmup", 1, "frames to run before capturing")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "give up after this long")
	cmd.Flags().StringVar(&opts.baseline, "baseline", "", "compare the capture with this named baseline")
	cmd.Flags().StringVar(&opts.baselineDir, "baseline-dir", "", "where baselines live (default <output dir>/baselines)")
	cmd.Flags().BoolVar(&opts.updateBaseline, "update-baseline", false, "store the capture as the baseline instead of comparing")
	return cmd
}

func runShoot(cmd *cobra.Command, opts *shootOptions) error {
	mode, err := screencap.ParseMode(opts.mode)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	s, err := openSession(cfg, afero.NewOsFs())
	if err != nil {
		return err
	}
	defer s.Close()

	req := s.ctrl.RequestFromSettings(mode, opts.stereo)
	overrides := []struct {
		key   string
		value int
		dst   *int
	}{
		{screencap.KeyResolutionX, opts.width, &req.Width},
		{screencap.KeyResolutionY, opts.height, &req.Height},
		{screencap.KeyResolution360, opts.res360, &req.PanoramaWidth},
	}
	for _, o := range overrides {
		if o.value == 0 {
			continue
		}
		v, err := s.policy.Validate(o.key, o.value)
		if err != nil {
			return err
		}
		*o.dst = cast.ToInt(v)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	for i := 0; i < opts.warmup; i++ {
		if err := s.host.WaitFrame(ctx); err != nil {
			return fmt.Errorf("failed to render frame: %w", err)
		}
	}

	res, err := s.ctrl.Capture(ctx, req, s.host)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), s.sink.Path(res.Filename))
	s.logger.Info("shot written", "file", res.Filename, "width", res.Width, "height", res.Height,
		"frames", res.Frames, "duration", res.Duration.String())

	if opts.baseline == "" {
		return nil
	}
	return checkBaseline(cmd, s, opts, res.Data)
}

func checkBaseline(cmd *cobra.Command, s *session, opts *shootOptions, data []byte) error {
	dir := opts.baselineDir
	if dir == "" {
		dir = filepath.Join(s.sink.Dir(), "baselines")
	}
	checker := imgdiff.NewChecker(s.fs, dir)

	if opts.updateBaseline {
		if err := checker.SetBaseline(opts.baseline, data); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "baseline %s updated\n", opts.baseline)
		return nil
	}

	d, err := checker.Check(opts.baseline, data)
	if err != nil {
		s.logger.Warn("baseline check failed", "baseline", opts.baseline, "difference", d)
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "matches baseline %s (%.2f%% different)\n", opts.baseline, d*100)
	return nil
}
