// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the primary lifecycle (validate, plan,
// render, run and watch), decoupled from any specific entrypoint like a CLI
// or server.
package app
