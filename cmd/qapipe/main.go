package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"qapipe/internal/config"
	"qapipe/pkg/logx"
)

const usage = `Usage: qapipe [-config PATH] COMMAND [args]

Commands:
  run-pipeline     run all four stages once and exit
  collect-data     run the data collection stage only
  train-model      run the training stage only
  evaluate-model   run the evaluation stage only
  deploy-model     run the deployment stage only
  start-api        serve the inference API
  start-scheduler  run the scheduling daemon
`

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config file (yaml or json)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}
	cmd := flag.Arg(0)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cmd, cfgPath, flag.Args()[1:]); err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd, cfgPath string, args []string) error {
	mgr := config.NewManager(cfgPath, logx.NewConsole("info"))
	cfg := mgr.Load()

	logSvc, log := logx.New(loggingConfig(cfg))
	defer logSvc.Close()

	if err := ensureDirs(cfg); err != nil {
		return err
	}

	switch cmd {
	case "run-pipeline":
		return cmdRunPipeline(ctx, cfg, log)
	case "collect-data":
		return cmdStage(ctx, cfg, log, stageCollect)
	case "train-model":
		return cmdStage(ctx, cfg, log, stageTrain)
	case "evaluate-model":
		return cmdStage(ctx, cfg, log, stageEvaluate)
	case "deploy-model":
		return cmdStage(ctx, cfg, log, stageDeploy)
	case "start-api":
		return cmdStartAPI(ctx, cfg, log, args)
	case "start-scheduler":
		return cmdStartScheduler(ctx, mgr, logSvc, log)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func loggingConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

// ensureDirs creates the working directories every command assumes exist.
// Failure here is fatal; nothing downstream can recover from it.
func ensureDirs(cfg *config.Config) error {
	dirs := []string{"./logs", "./data", "./results", cfg.Training.OutputDir, cfg.Deployment.RegistryPath}
	for _, d := range dirs {
		if d == "" {
			continue
		}
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", d, err)
		}
	}
	return nil
}
