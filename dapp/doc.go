// Package dapp is the worker-side half of web3telegram: the code running
// inside the confidential compute task. It parses the iExec worker
// environment and secrets, resolves the mounted protected data, decrypts
// the published telegram content and fans it out to every recipient slot,
// writing the deterministic result artifacts expected by the platform.
package dapp
