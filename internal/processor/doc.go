// Package processor contains the application logic behind the kotoba
// commands. It opens the store, builds the analyzer and the speech
// synthesizer on demand, and runs every command action: analysis, the saved
// library, backups, Anki export, the terminal games and the API server.
package processor
