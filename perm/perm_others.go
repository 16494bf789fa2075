//go:build !darwin && !windows

package perm

func hasCaptureHelper() bool {
	return false
}
