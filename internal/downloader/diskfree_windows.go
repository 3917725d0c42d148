//go:build windows

package downloader

import (
	"golang.org/x/sys/windows"
)

func freeDiskSpace(path string) int64 {
	ptr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return -1
	}

	var freeBytes, totalBytes, totalFreeBytes uint64
	if err := windows.GetDiskFreeSpaceEx(ptr, &freeBytes, &totalBytes, &totalFreeBytes); err != nil {
		return -1
	}

	return int64(freeBytes)
}
