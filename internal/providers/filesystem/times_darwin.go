//go:build darwin

package filesystem

import (
	"io/fs"
	"syscall"
	"time"
)

func fileTimes(_ string, info fs.FileInfo) (created, accessed time.Time) {
	created, accessed = info.ModTime(), info.ModTime()
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return created, accessed
	}
	if st.Birthtimespec.Sec != 0 {
		created = time.Unix(st.Birthtimespec.Sec, st.Birthtimespec.Nsec)
	}
	accessed = time.Unix(st.Atimespec.Sec, st.Atimespec.Nsec)
	return created, accessed
}
