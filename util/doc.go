// Package util holds small generic helpers shared across repokit packages.
package util
