// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package metrics holds the Prometheus collectors of the poll service.
// Collectors exist from package init so code can record into them in tests
// without registering; main registers them once on the default registry.
package metrics
