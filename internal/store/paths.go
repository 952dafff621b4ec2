package store

import (
	"path/filepath"

	"github.com/nvandessel/dasstrial/internal/constants"
)

// LocalDataPath returns the path to the .dasstrial directory for the given
// project root.
func LocalDataPath(projectRoot string) string {
	return filepath.Join(projectRoot, constants.DataDirName)
}

// ArchivePath returns the path of the run archive database.
func ArchivePath(projectRoot string) string {
	return filepath.Join(LocalDataPath(projectRoot), constants.ArchiveFileName)
}
