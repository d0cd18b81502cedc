// Package cli provides command-line interface setup and configuration
// for kotoba. It builds the cobra command tree, binds flags to viper keys
// and resolves API keys from the environment or the config file.
package cli
