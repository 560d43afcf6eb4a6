package animation_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/brawl/internal/game/animation"
)

func TestRegistry_DecodeFallbackTriggerFrame(t *testing.T) {
	reg := animation.NewRegistry()
	err := reg.Decode(strings.NewReader(`
animations:
  - key: heavy_slash
    total_frames: 9
    frame_rate: 10
  - key: whirlwind
    total_frames: 12
    trigger_frame: 4
`))
	require.NoError(t, err)

	heavy, ok := reg.Get("heavy_slash")
	require.True(t, ok)
	assert.Equal(t, 4, heavy.TriggerFrame)
	assert.Equal(t, 10.0, heavy.FrameRate)

	whirl, ok := reg.Get("whirlwind")
	require.True(t, ok)
	assert.Equal(t, 4, whirl.TriggerFrame)
	assert.Equal(t, 12.0, whirl.FrameRate)
	assert.Equal(t, []string{"heavy_slash", "whirlwind"}, reg.Keys())
}

func TestRegistry_DecodeRejectsUnknownFields(t *testing.T) {
	reg := animation.NewRegistry()
	err := reg.Decode(strings.NewReader("animations:\n  - key: x\n    total_frames: 3\n    speed: 2\n"))
	assert.Error(t, err)
	assert.Empty(t, reg.Keys())
}

func TestRegistry_DecodeRejectsTriggerOutOfRange(t *testing.T) {
	reg := animation.NewRegistry()
	err := reg.Decode(strings.NewReader("animations:\n  - key: ok\n    total_frames: 3\n  - key: bad\n    total_frames: 3\n    trigger_frame: 3\n"))
	assert.Error(t, err)
	assert.Empty(t, reg.Keys(), "a failed decode must not register anything")
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "warrior.yaml"), []byte("animations:\n  - key: slash\n    total_frames: 10\n    trigger_frame: 7\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	reg, err := animation.LoadDirectory(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"slash"}, reg.Keys())
}

func TestLoadDirectory_MissingDir(t *testing.T) {
	_, err := animation.LoadDirectory(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}
