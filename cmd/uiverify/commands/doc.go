// Package commands defines the uiverify CLI.
//
// Commands
//
//   - run      Run built-in or YAML scenarios against the target app
//   - list     Print the scenarios that can be run
//   - serve    Expose the run API over HTTP
//   - doctor   Check that Chrome can be launched and driven
//
// # Implementation
//
// The root command loads configuration and builds the logger before any
// subcommand runs. Subcommands build the browser manager and run manager
// they need and shut them down on exit.
package commands
