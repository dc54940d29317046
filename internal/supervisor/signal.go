package supervisor

import (
	"os"
	"syscall"
)

func termSignal() os.Signal { return syscall.SIGTERM }
func killSignal() os.Signal { return syscall.SIGKILL }
