//go:build unix

package documents

import "golang.org/x/sys/unix"

// freeSpace returns the bytes available to unprivileged users on the device
// holding path.
func freeSpace(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, err
	}
	return uint64(st.Bavail) * uint64(st.Bsize), nil
}

// canWrite asks the host whether the process may write path.
func canWrite(path string) bool {
	return unix.Access(path, unix.W_OK) == nil
}
