// Package sandbox decides whether a client process runs inside an
// application sandbox, based on the process's control-group membership.
package sandbox

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
)

// cgroup lines of sandboxed apps carry the scope name on the systemd
// hierarchy, e.g. "1:name=systemd:/user.slice/.../flatpak-org.app-1000.scope".
const (
	systemdLinePrefix = "1:name=systemd:"
	sandboxMarker     = "flatpak-"
)

// Classifier probes the control-group file of a PID.
type Classifier struct {
	fs afero.Fs
}

// NewClassifier creates a classifier reading through fs. A nil fs means the
// real filesystem.
func NewClassifier(fs afero.Fs) *Classifier {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Classifier{fs: fs}
}

// IsSandboxed reports whether pid belongs to a flatpak cgroup. An unreadable
// or missing cgroup file classifies as not sandboxed.
func (c *Classifier) IsSandboxed(pid int32) bool {
	data, err := afero.ReadFile(c.fs, cgroupPath(pid))
	if err != nil {
		return false
	}

	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, systemdLinePrefix) {
			continue
		}
		if strings.Contains(line, sandboxMarker) {
			return true
		}
	}
	return false
}

func cgroupPath(pid int32) string {
	return fmt.Sprintf("/proc/%d/cgroup", pid)
}
