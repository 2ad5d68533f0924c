package hook

import "os"

// ParentExited reports whether the hook was reparented to init, meaning the
// external tool that launched it is gone.
func ParentExited() bool {
	return os.Getppid() == 1
}
