package InputParameters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	rc := Defaults()
	assert.Equal(t, 5, rc.NViz)
	assert.Equal(t, 5, rc.NRestart)
	assert.Equal(t, 5.e-8, rc.CurrentDT)
	assert.Equal(t, 2.5e-7, rc.FinalTime)
	assert.NoError(t, rc.Validate())
}

func TestParse(t *testing.T) {
	{
		var (
			rc   = Defaults()
			data = []byte("nviz: 10\nnrestart: 20\ncurrent_dt: 1.0e-8\nt_final: 1.0e-6\n")
		)
		require.NoError(t, rc.Parse(data))
		assert.Equal(t, 10, rc.NViz)
		assert.Equal(t, 20, rc.NRestart)
		assert.Equal(t, 1.e-8, rc.CurrentDT)
		assert.Equal(t, 1.e-6, rc.FinalTime)
	}
	// A supplied file must carry every key; all omissions are reported
	// together.
	{
		rc := Defaults()
		err := rc.Parse([]byte("nviz: 10\nt_final: 1.0e-6\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nrestart")
		assert.Contains(t, err.Error(), "current_dt")
		assert.NotContains(t, err.Error(), "nviz")
	}
	{
		rc := Defaults()
		assert.Error(t, rc.Parse([]byte("nviz: [not a number\n")))
	}
}

func TestResolve(t *testing.T) {
	// Command line beats file beats defaults.
	{
		var (
			data      = []byte("nviz: 10\nnrestart: 20\ncurrent_dt: 1.0e-8\nt_final: 1.0e-6\n")
			nviz      = 3
			finalTime = 4.e-6
		)
		rc, err := Resolve(data, Overrides{NViz: &nviz, FinalTime: &finalTime})
		require.NoError(t, err)
		assert.Equal(t, 3, rc.NViz)
		assert.Equal(t, 20, rc.NRestart)
		assert.Equal(t, 1.e-8, rc.CurrentDT)
		assert.Equal(t, 4.e-6, rc.FinalTime)
	}
	// No file: defaults with overrides applied.
	{
		dt := 1.e-9
		rc, err := Resolve(nil, Overrides{CurrentDT: &dt})
		require.NoError(t, err)
		assert.Equal(t, 5, rc.NViz)
		assert.Equal(t, 1.e-9, rc.CurrentDT)
	}
	// Resolved parameters are validated.
	{
		dt := -1.e-9
		_, err := Resolve(nil, Overrides{CurrentDT: &dt})
		assert.Error(t, err)
	}
}
