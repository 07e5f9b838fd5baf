package component

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupKey(t *testing.T) {
	testCases := map[string]string{
		"atlas-cpp":     "ATLAS_CPP",
		"varconf":       "VARCONF",
		"metaserver-ng": "METASERVER_NG",
		"a-b-c":         "A_B_C",
	}
	for in, want := range testCases {
		assert.Equal(t, want, LookupKey(in), in)
	}
}

func TestSet(t *testing.T) {
	s, err := NewSet(
		Component{Name: "varconf", Path: "libs/varconf"},
		Component{Name: "atlas-cpp", Path: "libs/atlas-cpp", Repo: "atlas"},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"varconf", "atlas-cpp"}, s.Names())
	assert.Equal(t, 2, s.Len())

	c, ok := s.Lookup("ATLAS_CPP")
	require.True(t, ok)
	assert.Equal(t, "atlas-cpp", c.Name)
	assert.Equal(t, "atlas", c.RepoName())

	_, ok = s.Get("ATLAS_CPP")
	assert.False(t, ok, "Get must not use the key shim")

	_, ok = s.Lookup("eris")
	assert.False(t, ok)
}

func TestNewSet_Errors(t *testing.T) {
	_, err := NewSet(Component{Name: "a"}, Component{Name: "a"})
	assert.ErrorContains(t, err, "duplicate component")

	_, err = NewSet(Component{Name: "atlas-cpp"}, Component{Name: "atlas_cpp"})
	assert.ErrorContains(t, err, "share override key")

	_, err = NewSet(Component{Path: "libs/x"})
	assert.ErrorContains(t, err, "has no name")
}

func TestComponentDefaults(t *testing.T) {
	c := Component{Name: "wfmath", Path: "libs/wfmath"}
	assert.Equal(t, "wfmath", c.RepoName())
	assert.Equal(t, DefaultOwner, c.OwnerName())
	assert.Equal(t, DefaultBranch, c.DefaultRevision())
	assert.Equal(t, "wfmath", c.DisplayName())
	assert.False(t, c.SharesSource())

	c.LogName = "wfmath-lib"
	c.Source = "other"
	assert.Equal(t, "wfmath-lib", c.DisplayName())
	assert.True(t, c.SharesSource())
}
