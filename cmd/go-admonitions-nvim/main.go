package main

import (
	"fmt"

	"go-admonitions/internal/app"
	"go-admonitions/internal/config"
	"go-admonitions/internal/host"
	"go-admonitions/internal/logging"

	"github.com/neovim/go-client/nvim/plugin"
)

// Connect to Neovim, register the handlers and serve requests until the
// editor exits. Stdout carries the RPC stream, so logs go to stderr or a file.
func main() {
	plugin.Main(func(p *plugin.Plugin) error {
		path, err := config.DefaultPath()
		if err != nil {
			return err
		}
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}

		logger, closer, err := logging.New(cfg.LogLevel, cfg.LogFile)
		if err != nil {
			return fmt.Errorf("init logging: %w", err)
		}
		logger.WithField("config", path).Info("registering handlers")

		h := host.NewNvim(p, path, cfg, logger)
		return app.New(h, app.Options{
			Addr:   cfg.Addr,
			Styles: cfg.StylesEnabled(),
			Closer: closer,
		}, logger).Load()
	})
}
