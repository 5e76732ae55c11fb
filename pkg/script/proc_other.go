//go:build !unix

package script

import "os/exec"

func configureProcess(*exec.Cmd) {}
