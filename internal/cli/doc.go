// Package cli is the pipegrid command line. It turns cobra commands and
// flags into an app.Config, runs the requested app operation and maps
// failures to process exit codes through ExitError.
package cli
