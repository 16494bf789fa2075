//go:build darwin

package perm

import "os"

// installed by Wireshark's ChmodBPF package
const chmodBPFPlist = "/Library/LaunchDaemons/org.wireshark.ChmodBPF.plist"

func hasCaptureHelper() bool {
	return pathExists(chmodBPFPlist)
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
