package confgen

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/JanStreffing/aleph-levante-uftp-transfer-script/internal/config"
)

const monthlyPattern = `fesom/{{.Variable}}_fesom_{{.Year}}{{printf "%02d" .Month}}01.nc`

func baseEntry() Entry {
	return Entry{
		Name:       "fesom_monthly",
		LocalBase:  "/proj/out",
		RemoteBase: "/work/in",
		Years:      YearRange{From: 2000, To: 2001},
		Months:     []int{1, 2},
		Variables:  []string{"temp", "salt"},
		Pattern:    monthlyPattern,
	}
}

func TestSpec_Generate_ExpandsLoops(t *testing.T) {
	spec := &Spec{
		UFTP: config.UFTPSettings{
			User:    "jstreffi",
			AuthURL: "https://uftp.example.org:9000/rest/auth/LEVANTE",
		},
		Entries: []Entry{baseEntry()},
	}

	cfg, err := spec.Generate()
	require.NoError(t, err)
	require.Len(t, cfg.Groups, 1)

	g := cfg.Groups[0]
	assert.Equal(t, "fesom_monthly", g.Name)
	// 2 variables x 2 years x 2 months
	require.Len(t, g.Files, 8)
	// variable -> year -> month expansion order
	assert.Equal(t, "fesom/temp_fesom_20000101.nc", g.Files[0])
	assert.Equal(t, "fesom/temp_fesom_20000201.nc", g.Files[1])
	assert.Equal(t, "fesom/temp_fesom_20010101.nc", g.Files[2])
	assert.Equal(t, "fesom/salt_fesom_20000101.nc", g.Files[4])
	assert.Equal(t, spec.UFTP, cfg.UFTP)
}

func TestSpec_Generate_DefaultsToAllMonths(t *testing.T) {
	entry := baseEntry()
	entry.Months = nil
	entry.Years = YearRange{From: 2000, To: 2000}
	entry.Variables = []string{"temp"}

	spec := &Spec{Entries: []Entry{entry}}
	cfg, err := spec.Generate()
	require.NoError(t, err)
	assert.Len(t, cfg.Groups[0].Files, 12)
}

func TestSpec_Generate_RequireLocalFilters(t *testing.T) {
	localBase := t.TempDir()
	existing := "fesom/temp_fesom_20000101.nc"
	path := filepath.Join(localBase, existing)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	entry := baseEntry()
	entry.LocalBase = localBase
	entry.RequireLocal = true

	spec := &Spec{Entries: []Entry{entry}}
	cfg, err := spec.Generate()
	require.NoError(t, err)
	assert.Equal(t, []string{existing}, cfg.Groups[0].Files)
}

func TestLoadSpecFromReader(t *testing.T) {
	yamlSpec := `
uftp:
  user: jstreffi
  auth_url: https://uftp.example.org:9000/rest/auth/LEVANTE
entries:
  - name: fesom_monthly
    local_base: /proj/out
    remote_base: /work/in
    years: {from: 2000, to: 2000}
    months: [1]
    variables: [temp]
    pattern: 'fesom/{{.Variable}}_{{.Year}}{{printf "%02d" .Month}}.nc'
`
	spec, err := LoadSpecFromReader(strings.NewReader(yamlSpec))
	require.NoError(t, err)
	require.Len(t, spec.Entries, 1)

	cfg, err := spec.Generate()
	require.NoError(t, err)
	assert.Equal(t, []string{"fesom/temp_200001.nc"}, cfg.Groups[0].Files)
}

func TestEntry_Validation(t *testing.T) {
	t.Run("reversed year range", func(t *testing.T) {
		entry := baseEntry()
		entry.Years = YearRange{From: 2005, To: 2000}
		_, err := LoadSpecFromReader(strings.NewReader(marshal(t, &Spec{Entries: []Entry{entry}})))
		assert.ErrorContains(t, err, "years")
	})

	t.Run("month out of range", func(t *testing.T) {
		entry := baseEntry()
		entry.Months = []int{13}
		_, err := LoadSpecFromReader(strings.NewReader(marshal(t, &Spec{Entries: []Entry{entry}})))
		assert.ErrorContains(t, err, "month")
	})

	t.Run("no variables", func(t *testing.T) {
		entry := baseEntry()
		entry.Variables = nil
		_, err := LoadSpecFromReader(strings.NewReader(marshal(t, &Spec{Entries: []Entry{entry}})))
		assert.ErrorContains(t, err, "variables")
	})

	t.Run("bad template", func(t *testing.T) {
		entry := baseEntry()
		entry.Pattern = "{{.Broken"
		spec := &Spec{Entries: []Entry{entry}}
		_, err := spec.Generate()
		assert.ErrorContains(t, err, "pattern")
	})
}

func marshal(t *testing.T, spec *Spec) string {
	t.Helper()
	data, err := yaml.Marshal(spec)
	require.NoError(t, err)
	return string(data)
}
