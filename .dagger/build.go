package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dagger/relay/internal/dagger"
)

// Build returns a directory with the relay binary for every supported
// OS and architecture, laid out as <os>/<arch>/relay.
func (r *Relay) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	gooses := []string{"linux", "darwin"}
	goarches := []string{"amd64", "arm64"}

	outputs := dag.Directory()
	golang := r.goContainer()

	for _, goos := range gooses {
		for _, goarch := range goarches {
			path := fmt.Sprintf("%s/%s/", goos, goarch)

			build := golang.
				WithEnvVariable("GOOS", goos).
				WithEnvVariable("GOARCH", goarch).
				WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", path, "./cli/relay"})

			outputs = outputs.WithDirectory(path, build.Directory(path))
		}
	}

	return outputs
}

// BuildRelease compiles release binaries with the version, commit and build
// time stamped into pkg/utils.
func (r *Relay) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	const pkg = "github.com/papercomputeco/relay/pkg/utils"

	ldflags := []string{
		"-s",
		"-w",
		fmt.Sprintf("-X '%s.Version=%s'", pkg, version),
		fmt.Sprintf("-X '%s.Sha=%s'", pkg, commit),
		fmt.Sprintf("-X '%s.Buildtime=%s'", pkg, time.Now().UTC().Format(time.RFC3339)),
	}

	return r.Build(ctx, strings.Join(ldflags, " "))
}
