package dist

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// OS is the operating system family a distribution targets.
type OS string

const (
	Windows OS = "windows"
	MacOS   OS = "macos"
	Linux   OS = "linux"
	SunOS   OS = "sunos"
)

// ARM identifies the ARM sub-variant of a linux host.
// It is None on anything that is not an ARM cpu.
type ARM string

const (
	ARMNone ARM = ""
	ARMv6l  ARM = "v6l"
	ARMv7l  ARM = "v7l"
	ARM64   ARM = "arm64"
	// ARMUnknown marks 32bit ARM cpus that are neither v6 nor v7; there are
	// no distributions for those, and the locator rejects them explicitly.
	ARMUnknown ARM = "unknown"
)

// Platform describes the host a distribution artifact must target: the OS
// family, the pointer width and, on linux ARM cpus, the ARM sub-variant.
// It is computed once per process and never mutated afterwards.
type Platform struct {
	OS   OS
	Bits int
	ARM  ARM
}

// overridable in tests to pin arbitrary hosts
var (
	goos    = func() string { return runtime.GOOS }
	goarch  = func() string { return runtime.GOARCH }
	machine = machineName
)

// Detect computes the descriptor for the executing host.
// There is no error path: unknown OS/arch combinations are reported
// faithfully and rejected later by the artifact locator, not here.
func Detect() Platform {
	platform := Platform{
		OS:   osFamily(goos()),
		Bits: 64,
	}

	arch := goarch()
	if arch == "386" || arch == "arm" {
		platform.Bits = 32
	}

	if platform.OS != Linux {
		return platform
	}

	switch arch {
	case "arm64":
		platform.ARM = ARM64
	case "arm":
		switch machine() {
		case "armv6l":
			platform.ARM = ARMv6l
		case "armv7l":
			platform.ARM = ARMv7l
		default:
			platform.ARM = ARMUnknown
		}
	}

	return platform
}

// String renders the descriptor for error messages, e.g. "linux/64" or
// "linux/armv7l".
func (p Platform) String() string {
	if p.ARM != ARMNone {
		return fmt.Sprintf("%s/arm%s", p.OS, armSuffix(p.ARM))
	}
	return fmt.Sprintf("%s/%d", p.OS, p.Bits)
}

func armSuffix(arm ARM) string {
	if arm == ARM64 {
		return "64"
	}
	return string(arm)
}

func osFamily(goos string) OS {
	switch goos {
	case "darwin":
		return MacOS
	case "solaris", "illumos":
		return SunOS
	default:
		return OS(goos)
	}
}

// machineName mirrors `uname -m`, which is the only reliable way to tell
// armv6 and armv7 hosts apart from a go binary.
func machineName() string {
	out, err := exec.Command("uname", "-m").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
