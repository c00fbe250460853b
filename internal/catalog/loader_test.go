package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Tenderflow/internal/domain"
)

const variantYAML = `
name: travaux
steps:
  - phase: 1
    step: 1
    title: Expression du besoin
    role: technical_service
    estimated_days: 3
    max_days: 5
  - phase: 1
    step: 2
    title: Visa préalable
    role: state_control
  - phase: 1
    step: 3
    title: Approbation
    role: ordering_service
    on_reject: {phase: 1, step: 1}
  - phase: 2
    step: 1
    title: Paiement
    role: treasurer
`

func TestParse_Variant(t *testing.T) {
	c, err := Parse([]byte(variantYAML))
	require.NoError(t, err)

	assert.Equal(t, 2, c.PhaseCount())
	assert.Equal(t, 4, c.TotalSteps())

	s, err := c.Step(domain.StepRef{Phase: 1, Step: 3})
	require.NoError(t, err)
	require.NotNil(t, s.OnRejectTarget)
	assert.Equal(t, domain.StepRef{Phase: 1, Step: 1}, *s.OnRejectTarget)
	assert.Equal(t, domain.RoleOrderingService, s.ResponsibleRole)
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte(`
steps:
  - phase: 1
    step: 1
    title: x
    role: treasurer
    owner: bob
`))
	require.Error(t, err)
}

func TestParse_Empty(t *testing.T) {
	_, err := Parse(nil)
	assert.ErrorIs(t, err, ErrEmptyCatalog)
}

func TestParse_Gap(t *testing.T) {
	_, err := Parse([]byte(`
steps:
  - {phase: 1, step: 1, title: a, role: treasurer}
  - {phase: 1, step: 3, title: b, role: treasurer}
`))
	assert.ErrorIs(t, err, ErrStepGap)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(variantYAML), 0o600))

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 4, c.TotalSteps())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_DefaultsToReference(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 38, c.TotalSteps())
}

func TestMarshal_RoundTripsReference(t *testing.T) {
	ref, err := Default()
	require.NoError(t, err)

	data, err := Marshal("reference", ref)
	require.NoError(t, err)

	back, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, ref.Steps(), back.Steps())
}
