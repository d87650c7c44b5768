// SPDX-License-Identifier: MPL-2.0

//go:build windows

package watch

import "syscall"

// brokenErrnos are the Win32 codes after which ReadDirectoryChangesW stops
// delivering: ERROR_TOO_MANY_OPEN_FILES (4), ERROR_INVALID_HANDLE (6, the
// search path was removed or unmounted) and ERROR_NOT_ENOUGH_MEMORY (8).
var brokenErrnos = []syscall.Errno{4, 6, 8}
