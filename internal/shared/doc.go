// Package shared holds utilities used across packages that do not
// belong to any one domain layer. The testutil subpackage provides a
// buffered slog handler and log assertions for tests.
package shared
