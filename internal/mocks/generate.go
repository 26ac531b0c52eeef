// Package mocks provides mock implementations for testing the videogen job system.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the workflow ports. To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
package mocks

// Generate mocks for the workflow ports from internal/core.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=pipeline_mocks.go github.com/lessonforge/videogen/internal/core JobStore,PlanGenerator,CodeGenerator,Validator,Renderer,Notifier
