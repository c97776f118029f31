//go:build windows

package overlay

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                         = windows.NewLazySystemDLL("user32.dll")
	procFindWindow                 = user32.NewProc("FindWindowW")
	procSetWindowPos               = user32.NewProc("SetWindowPos")
	procGetWindowLong              = user32.NewProc("GetWindowLongW")
	procSetWindowLong              = user32.NewProc("SetWindowLongW")
	procSetLayeredWindowAttributes = user32.NewProc("SetLayeredWindowAttributes")
)

const (
	hwndTopmost   = ^uintptr(0) // (HWND)-1
	swpNoSize     = 0x0001
	swpNoActivate = 0x0010
	gwlExStyle    = ^uintptr(19) // -20 as two's complement
	wsExLayered   = 0x00080000
	lwaAlpha      = 0x00000002
)

func findWindow(title string) uintptr {
	t, err := windows.UTF16PtrFromString(title)
	if err != nil {
		return 0
	}
	hwnd, _, _ := procFindWindow.Call(0, uintptr(unsafe.Pointer(t)))
	return hwnd
}

// applyPlatformStyle makes the realized window topmost, positions it
// and applies the configured alpha.
func applyPlatformStyle(title string, alpha float64, x, y int) {
	hwnd := findWindow(title)
	if hwnd == 0 {
		return
	}
	procSetWindowPos.Call(hwnd, hwndTopmost, uintptr(x), uintptr(y), 0, 0, swpNoSize|swpNoActivate)

	style, _, _ := procGetWindowLong.Call(hwnd, gwlExStyle)
	procSetWindowLong.Call(hwnd, gwlExStyle, style|wsExLayered)
	if alpha < 0 || alpha > 1 {
		alpha = 1
	}
	procSetLayeredWindowAttributes.Call(hwnd, 0, uintptr(uint8(alpha*255)), lwaAlpha)
}

// moveWindow repositions the overlay during a drag.
func moveWindow(title string, x, y int) {
	hwnd := findWindow(title)
	if hwnd == 0 {
		return
	}
	procSetWindowPos.Call(hwnd, hwndTopmost, uintptr(x), uintptr(y), 0, 0, swpNoSize|swpNoActivate)
}
