// Package logging provides opt-in file-based logging with rotation for RabbitHole.
// When debug logging is enabled, structured JSON logs are written to
// ~/.rabbithole/logs/ for debugging and troubleshooting.
//
// By default logging is minimal and goes to stderr only, so embedding the
// library never surprises the host application with files on disk.
package logging
