package main

import (
	"context"
	"errors"
	"fmt"

	"dagger/relay/internal/dagger"
)

// CheckGoModTidy fails when go.mod or go.sum would change under
// "go mod tidy". The diff is returned in the error.
//
// +check
func (r *Relay) CheckGoModTidy(ctx context.Context) (string, error) {
	_, err := r.goContainer().
		WithExec([]string{"go", "mod", "tidy", "-diff"}).
		Stdout(ctx)

	var execErr *dagger.ExecError
	switch {
	case errors.As(err, &execErr):
		return "", fmt.Errorf("run 'go mod tidy' and commit the result:\n\n%s", execErr.Stdout)
	case err != nil:
		return "", fmt.Errorf("go mod tidy: %w", err)
	}

	return "go.mod and go.sum are tidy", nil
}

// CheckVet runs "go vet" over every relay package.
//
// +check
func (r *Relay) CheckVet(ctx context.Context) (string, error) {
	out, err := r.goContainer().
		WithExec([]string{"go", "vet", "./..."}).
		Stdout(ctx)
	if err != nil {
		return "", fmt.Errorf("go vet: %w", err)
	}
	return out, nil
}
