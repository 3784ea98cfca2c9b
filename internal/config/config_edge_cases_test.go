package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateRejectsSalienceBoundsInverted(t *testing.T) {
	cfg := Default()
	cfg.Train.SalienceMin = 100
	cfg.Train.SalienceMax = 10
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsSaliencePercentOutOfRange(t *testing.T) {
	cfg := Default()
	cfg.Train.SaliencePercent = 1.5
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsNonPositiveTopK(t *testing.T) {
	cfg := Default()
	cfg.Query.TopK = 0
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsMaxDFPercentOutOfRange(t *testing.T) {
	cfg := Default()
	cfg.Query.MaxDFPercent = 0
	require.Error(t, cfg.Validate())

	cfg.Query.MaxDFPercent = 150
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "verbose"
	require.Error(t, cfg.Validate())
}

func TestLoadTreatsMalformedYAMLAsConfigError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".config"), 0o755))
	require.NoError(t, os.WriteFile(Path(dir), []byte("query: [this is not a map"), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
}

func TestExcludePatternsMergeWithDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".config"), 0o755))
	require.NoError(t, os.WriteFile(Path(dir), []byte("paths:\n  exclude:\n    - \"**/testdata/**\"\n"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Contains(t, cfg.Paths.Exclude, "**/testdata/**")
	require.Contains(t, cfg.Paths.Exclude, "**/node_modules/**")
}
