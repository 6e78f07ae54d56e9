// Package datamap provides the public API for embedding the DataMap service.
// This is the stable API for external consumers.
package datamap

import (
	"github.com/voxkit/datamap/internal/runtime"
)

// Service is the main entry point for running the DataMap service.
// See internal/runtime.Service for full documentation.
type Service = runtime.Service

// Option is a functional option for configuring a Service.
type Option = runtime.Option

// New creates a new Service with the given options.
// Example:
//
//	svc, err := datamap.New(
//	    datamap.WithFileConfig("config.yaml"),
//	    datamap.WithSQLite("./data/datamap.db"),
//	)
var New = runtime.New

// Configuration options
var (
	// Config sources
	WithFileConfig     = runtime.WithFileConfig
	WithConfigProvider = runtime.WithConfigProvider

	// Authentication
	WithAPIKeyAuth = runtime.WithAPIKeyAuth

	// Storage
	WithSQLite        = runtime.WithSQLite
	WithMemoryStorage = runtime.WithMemoryStorage
	WithStore         = runtime.WithStore

	// Advanced options
	WithLogger     = runtime.WithLogger
	WithHTTPClient = runtime.WithHTTPClient
)
