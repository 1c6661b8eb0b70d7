package experiments

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	bferrors "github.com/Brownie44l1/burst-eval/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_Builtin(t *testing.T) {
	descs, err := Default().Resolve("dbsr_grayscale", Env{NetworksPath: "/nets"})
	require.NoError(t, err)
	require.Len(t, descs, 1)
	assert.Equal(t, "dbsr_denoise_grayscale", descs[0].UniqueName())
	assert.Equal(t, "DBSR", descs[0].DisplayName())
	assert.Equal(t, 8, descs[0].BurstSize())
}

func TestResolve_Unknown(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("dbsr_b", Networks()))
	require.NoError(t, r.Register("dbsr_a", Networks()))
	_, err := r.Resolve("nope", Env{})
	var cfgErr *bferrors.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, err.Error(), "dbsr_a, dbsr_b")
}

func TestRegister_Duplicate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("a", Networks()))
	assert.Error(t, r.Register("a", Networks()))
}

func TestNetworkParam_UniqueName(t *testing.T) {
	assert.Equal(t, "dbsr_default", NetworkParam{Module: "dbsr", Parameter: "default"}.UniqueName())
	assert.Equal(t, "dbsr_default_ep0100", NetworkParam{Module: "dbsr", Parameter: "default", EpochNum: 100}.UniqueName())
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	yml := `
networks:
  - module: kpn
    parameter: gray
    display_name: KPN
    burst_size: 4
  - module: dbsr
    parameter: gray
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "compare.yaml"), []byte(yml), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	r := NewRegistry()
	n, err := r.LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"compare"}, r.Names())

	descs, err := r.Resolve("compare", Env{NetworksPath: "/nets"})
	require.NoError(t, err)
	require.Len(t, descs, 2)
	assert.Equal(t, "KPN", descs[0].DisplayName())
	assert.Equal(t, 4, descs[0].BurstSize())
	assert.Equal(t, "dbsr_gray", descs[1].DisplayName())
	assert.Equal(t, 0, descs[1].BurstSize())
}

func TestLoadDir_Missing(t *testing.T) {
	n, err := NewRegistry().LoadDir(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLoadDir_InvalidNetwork(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yml"), []byte("networks:\n  - module: kpn\n"), 0o644))
	_, err := NewRegistry().LoadDir(dir)
	var cfgErr *bferrors.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}
