// Relay CI
//
// Package main provides reproducible builds and tests for the relay module,
// locally and in CI.
package main

import (
	"context"

	"dagger/relay/internal/dagger"
)

// Relay is the CI module for the relay binary
type Relay struct {
	// Project source directory
	//
	// +private
	Source *dagger.Directory
}

// New creates a new Relay CI module instance
func New(
	// Project source directory.
	//
	// +defaultPath="/"
	// +ignore=[".git", "build", "tmp", "_examples"]
	source *dagger.Directory,
) *Relay {
	return &Relay{
		Source: source,
	}
}

// goContainer returns a Go container with module and build caches mounted
// and the project source at /src. Relay has no cgo dependencies.
func (r *Relay) goContainer() *dagger.Container {
	return dag.Container().
		From("golang:1.25-alpine").
		WithEnvVariable("CGO_ENABLED", "0").
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build")).
		WithWorkdir("/src").
		WithDirectory("/src", r.Source)
}

// Test runs the relay unit tests
func (r *Relay) Test(ctx context.Context) (string, error) {
	return r.goContainer().
		WithExec([]string{"go", "test", "./..."}).
		Stdout(ctx)
}
