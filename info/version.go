package info

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/safing/ledgerbase/formats/dsd"
	"github.com/safing/ledgerbase/storage"
)

var (
	name    = "[NAME]"
	version = "dev build"
	license = "[license unknown]"
)

// Set sets meta information via the main routine. This should be the first thing your program calls.
func Set(setName string, setVersion string, setLicenseName string) {
	name = setName
	license = setLicenseName

	if setVersion != "" {
		version = setVersion
	}
}

// FullVersion returns the version together with what the binary can store:
// the compiled in storage types and the default record format.
func FullVersion() string {
	builder := new(strings.Builder)

	fmt.Fprintf(builder, "%s %s\n", name, version)
	fmt.Fprintf(builder, "\nbuilt with %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	if commit := vcsCommit(); commit != "" {
		fmt.Fprintf(builder, "  from commit %s\n", commit)
	}

	types := storage.Types()
	if len(types) == 0 {
		types = []string{"none"}
	}
	fmt.Fprintf(builder, "\nstorages: %s\n", strings.Join(types, ", "))
	fmt.Fprintf(builder, "default record format: %s\n", dsd.DefaultSerializationFormat)

	fmt.Fprintf(builder, "\nLicensed under the %s license.", license)
	return builder.String()
}

func vcsCommit() string {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}

	var commit string
	var dirty bool
	for _, setting := range buildInfo.Settings {
		switch setting.Key {
		case "vcs.revision":
			commit = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	if commit != "" && dirty {
		commit += "*"
	}
	return commit
}

// CheckVersion checks if the metadata is ok.
func CheckVersion() error {
	switch {
	case strings.HasSuffix(os.Args[0], ".test"):
		return nil // testing on linux/darwin
	case strings.HasSuffix(os.Args[0], ".test.exe"):
		return nil // testing on windows
	case name == "[NAME]" || license == "[license unknown]":
		return errors.New("must call info.Set() before calling CheckVersion()")
	}
	return nil
}
