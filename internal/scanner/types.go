// Package scanner discovers indexable files under a workspace root,
// respecting exclusion patterns, .gitignore rules, and sensitive file
// patterns, and classifying each one into its file type.
package scanner

import (
	"time"

	"github.com/codescope/codescope/internal/block"
)

// FileInfo contains metadata about a discovered file.
type FileInfo struct {
	Path     string         // Relative path to workspace root
	AbsPath  string         // Absolute path
	Size     int64          // File size in bytes
	ModTime  time.Time      // Last modification time
	FileType block.FileType // code, markdown, config, or other (window fallback)
}

// ScanOptions configures the scanner behavior.
type ScanOptions struct {
	// RootDir is the workspace root directory to scan.
	RootDir string

	// IncludePatterns specifies patterns to include (empty = all).
	IncludePatterns []string

	// ExcludePatterns specifies patterns to exclude, in addition to the
	// scanner's built-in defaults.
	ExcludePatterns []string

	// RespectGitignore enables .gitignore parsing.
	RespectGitignore bool

	// Workers sizes Scan's result channel buffer (Workers*10, 0 = NumCPU).
	// The directory walk itself runs on a single goroutine, and
	// ScanSubtree ignores this field.
	Workers int

	// MaxFileSize is the maximum file size to include in bytes (0 = 10MB default).
	MaxFileSize int64

	// FollowSymlinks enables following symbolic links (default: false).
	FollowSymlinks bool

	// ProgressFunc is accepted but not called: Scan and ScanSubtree report
	// no progress updates.
	ProgressFunc func(scanned, total int)
}

// ScanResult is returned from the scanner channel.
type ScanResult struct {
	File  *FileInfo
	Error error
}

// DefaultMaxFileSize is the default maximum file size (10MB).
const DefaultMaxFileSize = 10 * 1024 * 1024
