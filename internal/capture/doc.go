// Package capture runs the clipboard capture cycle.
//
// A Pipeline receives payload-free change notifications, coalesces them so at
// most one cycle is in flight with at most one queued behind it, and drives
// each cycle in order: read the clipboard, normalize, filter by protocol
// marker, drop repeats of the previous capture, write the capture file, append
// the ledger record, and confirm to the operator. Only a failed capture file
// write is surfaced; everything else that stops a cycle is silent.
package capture
