// Package perm reports whether the host has a helper installed that grants
// the current user packet capture rights.
package perm

// HasCaptureHelper reports whether the capture helper is installed.
func HasCaptureHelper() bool {
	return hasCaptureHelper()
}
