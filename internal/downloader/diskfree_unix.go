//go:build linux || darwin || freebsd

package downloader

import (
	"golang.org/x/sys/unix"
)

// freeDiskSpace returns the bytes available to unprivileged users on the
// filesystem holding path, or -1 when it cannot be determined.
func freeDiskSpace(path string) int64 {
	var fs unix.Statfs_t
	if err := unix.Statfs(path, &fs); err != nil {
		return -1
	}
	return int64(fs.Bavail) * int64(fs.Bsize)
}
