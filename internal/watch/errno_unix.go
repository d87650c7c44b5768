// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package watch

import "syscall"

// brokenErrnos exhaust inotify: the watch limit (fs.inotify.max_user_watches)
// or the process and system descriptor tables.
var brokenErrnos = []syscall.Errno{syscall.ENOSPC, syscall.EMFILE, syscall.ENFILE}
