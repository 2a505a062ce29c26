//go:build windows

package clipboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"nexusclip/internal/logging"
)

const (
	cfUnicodeText = 13

	wmClose           = 0x0010
	wmDestroy         = 0x0002
	wmClipboardUpdate = 0x031D

	listenerStopTimeout = 2 * time.Second
)

// hwndMessage is HWND_MESSAGE, the parent of message-only windows.
var hwndMessage = ^uintptr(2)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procOpenClipboard                 = user32.NewProc("OpenClipboard")
	procCloseClipboard                = user32.NewProc("CloseClipboard")
	procIsClipboardFormatAvailable    = user32.NewProc("IsClipboardFormatAvailable")
	procGetClipboardData              = user32.NewProc("GetClipboardData")
	procAddClipboardFormatListener    = user32.NewProc("AddClipboardFormatListener")
	procRemoveClipboardFormatListener = user32.NewProc("RemoveClipboardFormatListener")
	procRegisterClassExW              = user32.NewProc("RegisterClassExW")
	procCreateWindowExW               = user32.NewProc("CreateWindowExW")
	procDefWindowProcW                = user32.NewProc("DefWindowProcW")
	procDestroyWindow                 = user32.NewProc("DestroyWindow")
	procGetMessageW                   = user32.NewProc("GetMessageW")
	procTranslateMessage              = user32.NewProc("TranslateMessage")
	procDispatchMessageW              = user32.NewProc("DispatchMessageW")
	procPostMessageW                  = user32.NewProc("PostMessageW")
	procPostQuitMessage               = user32.NewProc("PostQuitMessage")
	procGlobalLock                    = kernel32.NewProc("GlobalLock")
	procGlobalUnlock                  = kernel32.NewProc("GlobalUnlock")
	procGlobalSize                    = kernel32.NewProc("GlobalSize")
	procGetModuleHandleW              = kernel32.NewProc("GetModuleHandleW")
)

type nativeSource struct{}

func newNativeSource() (Source, error) {
	if err := user32.Load(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nativeSource{}, nil
}

// ReadText opens the clipboard, copies CF_UNICODETEXT, and closes it again.
// Failing to open means another process holds the clipboard.
func (nativeSource) ReadText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if r, _, err := procOpenClipboard.Call(0); r == 0 {
		return "", fmt.Errorf("open clipboard: %v: %w", err, ErrBusy)
	}
	defer procCloseClipboard.Call()

	if r, _, _ := procIsClipboardFormatAvailable.Call(cfUnicodeText); r == 0 {
		return "", ErrNoText
	}
	handle, _, err := procGetClipboardData.Call(cfUnicodeText)
	if handle == 0 {
		return "", fmt.Errorf("get clipboard data: %v: %w", err, ErrBusy)
	}
	ptr, _, err := procGlobalLock.Call(handle)
	if ptr == 0 {
		return "", fmt.Errorf("lock clipboard memory: %w", err)
	}
	defer procGlobalUnlock.Call(handle)

	size, _, _ := procGlobalSize.Call(handle)
	if size == 0 {
		return "", ErrNoText
	}
	data := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), size)
	text := decodeUTF16LE(data)
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

type wndClassEx struct {
	Size       uint32
	Style      uint32
	WndProc    uintptr
	ClsExtra   int32
	WndExtra   int32
	Instance   windows.Handle
	Icon       windows.Handle
	Cursor     windows.Handle
	Background windows.Handle
	MenuName   *uint16
	ClassName  *uint16
	IconSm     windows.Handle
}

type point struct {
	X, Y int32
}

type msg struct {
	Hwnd     uintptr
	Message  uint32
	WParam   uintptr
	LParam   uintptr
	Time     uint32
	Pt       point
	LPrivate uint32
}

var (
	classOnce sync.Once
	className *uint16
	classErr  error

	// callbacks maps a listener window to its change callback.
	callbacks sync.Map
)

func registerWindowClass() error {
	classOnce.Do(func() {
		className, classErr = windows.UTF16PtrFromString("NexusClipListener")
		if classErr != nil {
			return
		}
		instance, _, _ := procGetModuleHandleW.Call(0)
		wc := wndClassEx{
			WndProc:   windows.NewCallback(wndProc),
			Instance:  windows.Handle(instance),
			ClassName: className,
		}
		wc.Size = uint32(unsafe.Sizeof(wc))
		if r, _, err := procRegisterClassExW.Call(uintptr(unsafe.Pointer(&wc))); r == 0 {
			if !errors.Is(err, windows.ERROR_CLASS_ALREADY_EXISTS) {
				classErr = fmt.Errorf("register window class: %w", err)
			}
		}
	})
	return classErr
}

func wndProc(hwnd, message, wParam, lParam uintptr) uintptr {
	switch uint32(message) {
	case wmClipboardUpdate:
		if cb, ok := callbacks.Load(hwnd); ok {
			cb.(func())()
		}
		return 0
	case wmClose:
		procDestroyWindow.Call(hwnd)
		return 0
	case wmDestroy:
		procRemoveClipboardFormatListener.Call(hwnd)
		callbacks.Delete(hwnd)
		procPostQuitMessage.Call(0)
		return 0
	}
	r, _, _ := procDefWindowProcW.Call(hwnd, message, wParam, lParam)
	return r
}

// nativeListener owns a message-only window subscribed to WM_CLIPBOARDUPDATE.
// The window and its message loop live on one locked OS thread.
type nativeListener struct {
	logger *slog.Logger

	mu   sync.Mutex
	hwnd uintptr
	done chan struct{}
}

func newNativeListener(logger *slog.Logger) (Listener, error) {
	if err := user32.Load(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &nativeListener{logger: logging.NewComponentLogger(logger, "clipboard-listener")}, nil
}

func (l *nativeListener) Backend() string {
	return "native"
}

func (l *nativeListener) Register(callback func()) error {
	if callback == nil {
		return errors.New("clipboard listener callback is nil")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.hwnd != 0 {
		return errors.New("clipboard listener already registered")
	}
	if err := registerWindowClass(); err != nil {
		return err
	}

	ready := make(chan error, 1)
	done := make(chan struct{})
	hwndCh := make(chan uintptr, 1)
	go l.messageLoop(callback, ready, hwndCh, done)
	if err := <-ready; err != nil {
		return err
	}
	l.hwnd = <-hwndCh
	l.done = done
	return nil
}

func (l *nativeListener) messageLoop(callback func(), ready chan<- error, hwndCh chan<- uintptr, done chan<- struct{}) {
	defer close(done)
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	instance, _, _ := procGetModuleHandleW.Call(0)
	hwnd, _, err := procCreateWindowExW.Call(
		0,
		uintptr(unsafe.Pointer(className)),
		0,
		0,
		0, 0, 0, 0,
		hwndMessage,
		0,
		instance,
		0,
	)
	if hwnd == 0 {
		ready <- fmt.Errorf("create listener window: %w", err)
		return
	}
	callbacks.Store(hwnd, callback)
	if r, _, err := procAddClipboardFormatListener.Call(hwnd); r == 0 {
		callbacks.Delete(hwnd)
		procDestroyWindow.Call(hwnd)
		ready <- fmt.Errorf("add clipboard format listener: %w", err)
		return
	}
	ready <- nil
	hwndCh <- hwnd

	var m msg
	for {
		r, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		if int32(r) <= 0 {
			return
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&m)))
	}
}

func (l *nativeListener) Unregister() error {
	l.mu.Lock()
	hwnd, done := l.hwnd, l.done
	l.hwnd, l.done = 0, nil
	l.mu.Unlock()
	if hwnd == 0 {
		return nil
	}
	if r, _, err := procPostMessageW.Call(hwnd, wmClose, 0, 0); r == 0 {
		return fmt.Errorf("post close to listener window: %w", err)
	}
	select {
	case <-done:
		return nil
	case <-time.After(listenerStopTimeout):
		l.logger.Debug("listener window did not close in time")
		return errors.New("clipboard listener did not stop in time")
	}
}
