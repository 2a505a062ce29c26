// Package clipboard reads desktop clipboard text and reports clipboard changes.
//
// A Source performs one read attempt and classifies failures. ErrBusy marks a
// transient contention the Reader retries. ErrNoText means the clipboard holds
// no text. A Listener delivers payload-free change callbacks. Backends are
// chosen per platform: user32 on Windows, wl-paste, clipnotify, or the
// xclip/xsel/pbpaste command family elsewhere, and a polling fallback that
// works anywhere a Source does.
package clipboard
