// Command web3telegram-app is the confidential worker entrypoint. It runs
// inside the TEE task spawned by a settled deal: it reads the iExec worker
// environment and secrets, downloads and decrypts the published telegram
// content, delivers it to every recipient slot and writes the result
// artifacts to IEXEC_OUT.
//
// A non-zero exit signals an infrastructure failure (bad environment,
// undecryptable content, unwritable output). Per-recipient delivery
// failures are reported through result.json and exit 0.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/iExecBlockchainComputing/web3telegram-sdk/dapp"
	"github.com/iExecBlockchainComputing/web3telegram-sdk/storage"
	"github.com/iExecBlockchainComputing/web3telegram-sdk/telegram"
)

func main() {
	var (
		gatewayURL = flag.String("ipfs-gateway", storage.DefaultGateway, "IPFS gateway content is fetched through")
		apiBaseURL = flag.String("telegram-api", "", "Telegram API base URL override (tests)")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	env, err := dapp.ParseEnv(os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid worker environment: %v\n", err)
		os.Exit(1)
	}

	appSecret, err := dapp.ParseAppSecret(env.AppDeveloperSecret)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid app secret: %v\n", err)
		os.Exit(1)
	}

	dispatcher, err := telegram.NewDispatcher(telegram.Config{
		BotToken:   appSecret.TelegramBotToken,
		APIBaseURL: *apiBaseURL,
	}, telegram.WithLogger(log))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Building telegram dispatcher: %v\n", err)
		os.Exit(1)
	}

	fetcher := storage.NewClient("", *gatewayURL)
	executor := dapp.NewExecutor(env, fetcher, dispatcher, log)

	if err := executor.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Task failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Task complete")
}
