// Package cmd contains the web3telegram binaries.
//
// # Commands
//
//	web3telegram-app  Confidential worker entrypoint, run inside the TEE
//	                  task. Reads the iExec worker environment and secrets,
//	                  delivers the message(s) and writes result artifacts.
//	demo-market       Local demo gateway: serves a mock orderbook and a
//	                  mock Telegram API for exercising the SDK end to end.
//
// # Usage
//
//	go run ./cmd/web3telegram-app
//	go run ./cmd/demo-market --config=market.yaml
package cmd
