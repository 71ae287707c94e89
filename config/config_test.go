package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsUsable(t *testing.T) {
	c := Default()
	require.Equal(t, 24, c.Rows)
	require.Equal(t, 80, c.Cols)
	require.Equal(t, "cp037", c.CodePage)
	require.Equal(t, ForceAuto, c.ForceMode)
}

func TestLoadFillsGeometryFromModel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: 3\ndevice_type: IBM-3278-3-E\n"), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 32, c.Rows)
	require.Equal(t, 80, c.Cols)
	require.Equal(t, "IBM-3278-3-E", c.DeviceType)
	require.Equal(t, "cp037", c.CodePage) // untouched fields keep the default
}

func TestLoadRejectsUnknownForceMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte("force_mode: bogus\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestDeadlinesPreferExplicitTimeoutsOverProfile(t *testing.T) {
	c := Default()
	c.TimingProfile = Aggressive
	c.StepTimeout = 30 * time.Second

	now := time.Now()
	overall, step := c.Deadlines(now)
	require.Equal(t, now.Add(5*time.Second), overall) // aggressive preset, unoverridden
	require.Equal(t, now.Add(30*time.Second), step)    // explicit override wins
}
