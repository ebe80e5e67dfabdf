//go:build !unix

package documents

import "os"

func freeSpace(string) (uint64, error) {
	return 0, nil
}

func canWrite(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().Perm()&0o200 != 0
}
