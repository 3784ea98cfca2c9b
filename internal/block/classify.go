package block

import (
	"path/filepath"
	"strings"
)

// FileType is the coarse classification driving both tokenizer prose mode
// and block adapter selection.
type FileType int

const (
	FileTypeCode FileType = iota
	FileTypeConfig
	FileTypeMarkdown
	FileTypeOther
)

func (t FileType) String() string {
	switch t {
	case FileTypeCode:
		return "code"
	case FileTypeConfig:
		return "config"
	case FileTypeMarkdown:
		return "markdown"
	default:
		return "other"
	}
}

var codeExt = map[string]bool{
	".go": true, ".py": true, ".js": true, ".ts": true, ".tsx": true, ".jsx": true,
	".java": true, ".c": true, ".h": true, ".cpp": true, ".cc": true, ".hpp": true,
	".rs": true, ".rb": true, ".php": true, ".cs": true, ".swift": true, ".kt": true,
	".scala": true, ".sh": true, ".bash": true, ".zsh": true, ".sql": true, ".lua": true,
	".pl": true, ".r": true, ".m": true, ".ex": true, ".exs": true, ".erl": true,
	".hs": true, ".clj": true, ".proto": true,
}

var configExt = map[string]bool{
	".yaml": true, ".yml": true, ".json": true, ".toml": true, ".ini": true,
	".cfg": true, ".conf": true, ".env": true, ".properties": true,
}

var markdownExt = map[string]bool{
	".md": true, ".markdown": true,
}

// extensionlessCodeNames are well-known filenames without an extension
// that should still be treated as code for adapter selection.
var extensionlessCodeNames = map[string]bool{
	"Makefile": true, "makefile": true, "Gemfile": true, "Dockerfile": true,
	"Rakefile": true, "Vagrantfile": true, "Procfile": true, "Jenkinsfile": true,
}

// Classify maps a file path to its FileType using a small closed list of
// extensions for code, config, and markdown; specific well-known
// extensionless filenames map to code; everything else falls through to
// the window adapter via FileTypeOther.
func Classify(path string) FileType {
	base := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(base))

	if ext == "" {
		if extensionlessCodeNames[base] {
			return FileTypeCode
		}
		return FileTypeOther
	}
	switch {
	case markdownExt[ext]:
		return FileTypeMarkdown
	case codeExt[ext]:
		return FileTypeCode
	case configExt[ext]:
		return FileTypeConfig
	default:
		return FileTypeOther
	}
}

// AdapterFor returns the block adapter appropriate for a file's type.
// Code and config both use indentation structure; markdown uses headings;
// anything else falls back to fixed windows.
func AdapterFor(ft FileType, tabWidth, indentWidth int) Adapter {
	switch ft {
	case FileTypeCode, FileTypeConfig:
		return &IndentAdapter{TabWidth: tabWidth, IndentWidth: indentWidth}
	case FileTypeMarkdown:
		return &MarkdownAdapter{}
	default:
		return &WindowAdapter{}
	}
}

// IsProse reports whether a file type should enable word-token extraction
// during tokenization: markdown bodies are prose, code and config
// are not.
func IsProse(ft FileType) bool {
	return ft == FileTypeMarkdown
}
