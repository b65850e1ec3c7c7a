package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/m4xw311/meowcli/agent/terminal"
	"github.com/m4xw311/meowcli/config"
	"github.com/m4xw311/meowcli/logger"
	"github.com/m4xw311/meowcli/tools"
)

func main() {
	configFlag := flag.String("config", "", "Path to the provider config file (defaults to the platform config directory)")
	logLevelFlag := flag.String("log-level", "warn", "Log level: trace, debug, info, warn, error")
	flag.Parse()

	log := logger.New(*logLevelFlag)

	// Resolve and load the provider store
	storePath := *configFlag
	if storePath == "" {
		var err error
		storePath, err = config.DefaultStorePath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error resolving config path: %+v\n", err)
			os.Exit(1)
		}
	}
	store, err := config.OpenStore(storePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %+v\n", err)
		os.Exit(1)
	}
	// First run persists the defaults so the user has a file to edit.
	if _, err := os.Stat(storePath); os.IsNotExist(err) {
		if err := store.Save(); err != nil {
			log.Warn().Err(err).Str("path", storePath).Msg("could not persist default configuration")
		}
	}

	// Load the agent policy
	policy, err := config.LoadPolicy()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading agent policy: %+v\n", err)
		os.Exit(1)
	}

	registry := tools.NewRegistry(policy, log)
	term := terminal.New(store, policy, registry, log)
	ctx := context.Background()

	// Positional arguments run a single task without the command prompt.
	if prompt := strings.Join(flag.Args(), " "); prompt != "" {
		if err := term.RunOnce(ctx, prompt); err != nil {
			fmt.Fprintf(os.Stderr, "Task failed: %+v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := term.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %+v\n", err)
		os.Exit(1)
	}
}
