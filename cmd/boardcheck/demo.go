package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gotrs-io/boardcheck/internal/config"
	"github.com/gotrs-io/boardcheck/internal/dataset"
	"github.com/gotrs-io/boardcheck/internal/demoapp"
)

var demoFlags struct {
	addr     string
	dataset  string
	username string
	password string
	secret   string
	omit     []string
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Serve a task board seeded from the dataset",
	Long: `Demo serves a small task board whose markup follows the conventions
boardcheck expects. Every dataset record becomes a card, so a run against it
passes. Use --omit-tag id:tag to drop a tag and see a failing scenario.

The sign-in account comes from --username/--password, or from the configured
credentials when those flags are not given.`,
	Example: `  boardcheck demo --addr :8080
  boardcheck demo --omit-tag T1:urgent`,
	RunE: runDemo,
}

func init() {
	f := demoCmd.Flags()
	f.StringVar(&demoFlags.addr, "addr", ":8080", "Listen address")
	f.StringVar(&demoFlags.dataset, "dataset", "", "Dataset used to seed the board")
	f.StringVar(&demoFlags.username, "username", "alice", "Account username")
	f.StringVar(&demoFlags.password, "password", "pw", "Account password")
	f.StringVar(&demoFlags.secret, "secret", "", "Session signing secret (random when empty)")
	f.StringArrayVar(&demoFlags.omit, "omit-tag", nil, "Drop a tag from a card, as <scenario-id>:<tag>")
}

func runDemo(cmd *cobra.Command, args []string) error {
	account := config.Credentials{Username: demoFlags.username, Password: demoFlags.password}
	datasetPath := demoFlags.dataset

	// The configuration is optional here; the demo is often started before
	// a base URL exists.
	if cfg, err := config.Load(configPath); err == nil {
		if !cmd.Flags().Changed("username") && cfg.Credentials.Username != "" {
			account = cfg.Credentials
		}
		if datasetPath == "" {
			datasetPath = cfg.Dataset
		}
	} else {
		logger.Debug("demo runs without configuration", zap.Error(err))
	}
	if datasetPath == "" {
		datasetPath = "data/tasks.json"
	}

	ds, err := dataset.Load(datasetPath)
	if err != nil {
		return err
	}

	omissions := make([]demoapp.Omission, 0, len(demoFlags.omit))
	for _, raw := range demoFlags.omit {
		o, err := demoapp.ParseOmission(raw)
		if err != nil {
			return err
		}
		omissions = append(omissions, o)
	}

	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	srv, err := demoapp.New(demoapp.FromDataset(ds, omissions...), demoapp.Options{
		Accounts: []config.Credentials{account},
		Secret:   demoFlags.secret,
	}, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("demo account", zap.String("username", account.Username))
	return srv.ListenAndServe(ctx, demoFlags.addr)
}
