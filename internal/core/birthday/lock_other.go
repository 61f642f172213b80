//go:build windows

package birthday

import "os"

// No advisory locking here; the in-process mutex still serializes writers.
func lockFile(*os.File) error   { return nil }
func unlockFile(*os.File) error { return nil }
