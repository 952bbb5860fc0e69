// console is the terminal front end of the support console. It runs the
// same application core as the API server and drives one session
// in-process.
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/support-console/backend/internal/app"
	"github.com/support-console/backend/internal/console"
	"github.com/support-console/backend/pkg/config"
	appLogger "github.com/support-console/backend/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath, logFile string

	flagSet := pflag.NewFlagSet("console", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "path to a config file")
	flagSet.StringVar(&logFile, "log-file", "console.log", "write log records to this file instead of the terminal")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// The TUI owns the terminal.
	output := cfg.Logging.OutputPath
	if output == "" || output == "stdout" || output == "stderr" {
		output = logFile
	}
	if err := appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, output); err != nil {
		return err
	}
	defer appLogger.Sync()

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Start(); err != nil {
		return err
	}

	session := a.Sessions.Create()
	appLogger.Info("Console started", zap.String("session_id", session.ID))

	model := console.NewModel(a, session)
	defer model.Close()

	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err = program.Run()
	return err
}
