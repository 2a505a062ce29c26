// Command nexusclip runs the clipboard capture listener and inspects its
// inbox and ledger.
//
// `nexusclip run` starts the listener in the foreground. `capture-now` reads
// the clipboard once and needs the daemon lock to be free. The remaining
// commands read the storage root directly and work whether or not a listener
// is running.
package main
