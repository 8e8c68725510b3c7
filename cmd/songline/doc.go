// Command songline is the operator CLI for the song request daemon.
//
// Every subcommand except "daemon" and "config init" talks to a running
// daemon over its HTTP API using the address and bearer token from the
// loaded configuration. "songline daemon" runs the daemon in the foreground;
// "songline start" launches it detached and waits until the API answers.
package main
