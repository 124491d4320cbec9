//go:build !linux && !darwin

package fileinfo

import (
	"os"
	"time"
)

func changeTime(fi os.FileInfo) time.Time {
	return fi.ModTime()
}
