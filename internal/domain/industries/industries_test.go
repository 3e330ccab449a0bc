package industries

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolve_GeneralIsIdentity(t *testing.T) {
	m := New(nil)

	for _, raw := range []string{"car", "Grapevine", "traffic light"} {
		target, ok, err := m.Resolve("general", raw)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, raw, target)
	}
}

func TestResolve_SynonymLookup(t *testing.T) {
	m := Default()

	target, ok, err := m.Resolve("agriculture", "grapevine")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "vine", target)

	// case-insensitive on the synonym
	target, ok, err = m.Resolve("agriculture", "GrapeVine")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "vine", target)

	// no mapping: ok=false, no error
	_, ok, err = m.Resolve("agriculture", "car")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestResolve_UnknownIndustry(t *testing.T) {
	m := Default()

	_, _, err := m.Resolve("mining", "truck")
	require.ErrorIs(t, err, ErrUnknownIndustry)
}

func TestHas(t *testing.T) {
	m := Default()

	require.True(t, m.Has("general"))
	require.True(t, m.Has("agriculture"))
	require.True(t, m.Has("Rescue"))
	require.False(t, m.Has("mining"))
}

func TestClasses_DeclaredOrder(t *testing.T) {
	m := New(map[string][]Class{
		"farm": {
			{Name: "vine", Synonyms: []string{"vine"}},
			{Name: "tree", Synonyms: []string{"tree"}},
		},
	})

	classes, err := m.Classes("farm")
	require.NoError(t, err)
	require.Equal(t, []string{"vine", "tree"}, classes)

	_, err = m.Classes("mining")
	require.ErrorIs(t, err, ErrUnknownIndustry)
}

func TestLoadFile(t *testing.T) {
	path := writeTempClassMap(t)

	m, err := LoadFile(path)
	require.NoError(t, err)

	target, ok, err := m.Resolve("agriculture", "plant")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "vine", target)

	require.Equal(t, []string{"agriculture", "general"}, m.Industries())
}

func writeTempClassMap(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "industries.yaml")
	data := []byte(`
industries:
  agriculture:
    classes:
      - name: vine
        synonyms: [vine, grapevine, plant]
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}
