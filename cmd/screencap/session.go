package main

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/teranos/screencap"
	"github.com/teranos/screencap/config"
	"github.com/teranos/screencap/logging"
	"github.com/teranos/screencap/operators"
	"github.com/teranos/screencap/settings"
	"github.com/teranos/screencap/xmp"
)

// session is everything one command needs: logger, persisted settings, the
// demo host and a controller wired to the output directory.
type session struct {
	cfg    *config.Config
	fs     afero.Fs
	logger *logging.Logger
	store  *settings.File
	policy *screencap.Policy
	sink   *screencap.FileSink
	host   *operators.Host
	ctrl   *screencap.Controller
}

func openSession(cfg *config.Config, fs afero.Fs) (*session, error) {
	logger, err := logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	store, err := settings.NewFile(fs, cfg.Settings.SettingsPath())
	if err != nil {
		_ = logger.Close()
		return nil, err
	}
	policy := screencap.NewPolicy(store, screencap.DefaultSettings(cfg.Host.Width, cfg.Host.Height)...).
		WithLogger(logger)

	sink, err := screencap.NewFileSink(fs, cfg.Output.Dir)
	if err != nil {
		_ = logger.Close()
		return nil, fmt.Errorf("failed to prepare output directory: %w", err)
	}

	host := operators.NewDemoHost(cfg.Host.Width, cfg.Host.Height, cfg.Host.FrameInterval())
	ctrl := screencap.NewController(host.Renderer, host.Rig()).
		WithPolicy(policy).
		WithSink(sink).
		WithLogger(logger).
		WithPrefix(cfg.Output.Prefix)
	if cfg.Output.TagPanoramas {
		ctrl.WithTagger(xmp.NewTagger("screencap"))
	}

	logger.Debug("session opened", "output", sink.Dir(), "settings", store.Path(),
		"width", cfg.Host.Width, "height", cfg.Host.Height)

	return &session{
		cfg:    cfg,
		fs:     fs,
		logger: logger,
		store:  store,
		policy: policy,
		sink:   sink,
		host:   host,
		ctrl:   ctrl,
	}, nil
}

func (s *session) Close() error {
	if report, ok := s.ctrl.Report(); ok {
		s.logger.Warn("captures failed this session", "report", report)
	}
	if report, ok := s.policy.Report(); ok {
		s.logger.Debug("settings corrected this session", "report", report)
	}
	return s.logger.Close()
}
