//go:build windows

package perm

// Npcap installs its driver with the rights it needs.
func hasCaptureHelper() bool {
	return true
}
