package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"payadmin/internal/config"
	"payadmin/internal/logging"
)

const usageText = `payadmin is the operator console for the transfer admin API.

Usage:
  payadmin <command> [flags]

Commands:
  login      sign in and store the session
  logout     sign out and forget the session
  whoami     show the signed-in admin
  pending    print the number of pending transfers
  watch      poll the pending count and send notifications
  transfers  list, show and update transfers
  records    list customers, admins, wallets, audit logs or settings
  ui         run the terminal dashboard
  config     print configuration (effective or defaults)
  sandbox    run a local fake of the admin API
  version    print the build version
  help       show help

Flags:
  -h, --help   show help

Environment:
  PAYADMIN_API_URL, PAYADMIN_EMAIL, PAYADMIN_PASSWORD, PAYADMIN_LOG_LEVEL,
  PAYADMIN_TELEGRAM_TOKEN, PAYADMIN_TELEGRAM_CHAT_ID, PAYADMIN_METRICS_ADDR
  are also read from ~/.payadmin/.env and ./.env.

Examples:
  payadmin login --email ops@example.com
  payadmin transfers list --kind pending --format json
  payadmin transfers approve 7f1c... --notes "matched bank statement"
  payadmin watch --metrics-addr 127.0.0.1:9464
  payadmin sandbox --seed
`

func printUsage() {
	fmt.Fprint(os.Stderr, usageText)
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		return
	}
	switch args[0] {
	case "-h", "--help", "help":
		printUsage()
		return
	}

	loadDotEnv()
	cfg, err := config.Load()
	exitOnErr("config", err, os.Stderr)
	logger := logging.NewWithFormat(os.Stderr, logging.ParseLevel(cfg.LogLevel()), logging.ParseFormat(cfg.LogFormat()))

	wiring := defaultCommandWiring(os.Stdout, os.Stderr, cfg, logger)
	commands := buildCommands(wiring)

	runner, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
	exitOnErr(args[0], runner.Run(args[1:]), wiring.stderr)
}

// loadDotEnv fills unset variables from the data directory and the working
// directory. Variables already in the environment win.
func loadDotEnv() {
	var files []string
	if path, err := config.EnvPath(); err == nil {
		files = append(files, path)
	}
	files = append(files, ".env")
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		_ = godotenv.Load(file)
	}
}
