// Package app is the composition root of the snooze command line client.
//
// # Overview
//
// Run loads the configuration, opens the log, builds the API client and a
// session, then dispatches to one command. Commands that act on behalf of a
// user first try to resume the stored session; login and signup establish a
// new one and persist it.
//
//	Run()
//	  ├─> config.Load()          read ~/.config/snooze/config.toml
//	  ├─> logging.New()          JSON log in the log directory
//	  ├─> hns.NewClient()        HTTP client for the story service
//	  ├─> session.New()          current user plus credential store
//	  ├─> EstablishFromStoredCredentials()  (resume commands only)
//	  └─> command.run()
//
// # Watching
//
// The watch command polls the story list at the configured interval and
// prints stories it has not shown before. Consecutive failures back off
// exponentially, capped at five minutes, and reset after a good refresh.
//
// # Errors
//
// Commands return errors unchanged so callers can test them with errors.Is.
// Describe maps them onto the short messages printed by the binary.
package app
