//go:build windows

package main

import "os/exec"

// configureDaemonProc is a no-op; Windows has no Setsid and the started
// process already outlives its parent.
func configureDaemonProc(cmd *exec.Cmd) {}
