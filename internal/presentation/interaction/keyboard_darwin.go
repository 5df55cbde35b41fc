//go:build darwin

package interaction

import (
	"os"

	"golang.org/x/sys/unix"
)

const (
	ioctlGetTermios = unix.TIOCGETA
	ioctlSetTermios = unix.TIOCSETA
)

// enableRawMode sets the terminal to raw mode on macOS
func (kr *KeyboardReader) enableRawMode() error {
	return kr.makeRaw(int(os.Stdin.Fd()))
}
