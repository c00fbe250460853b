package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Tenderflow/internal/domain"
)

func mustNew(t *testing.T, defs []domain.StepDefinition) *Catalog {
	t.Helper()
	c, err := New(defs)
	require.NoError(t, err)
	return c
}

func TestCompare_SameStructure(t *testing.T) {
	reference := MustDefault()
	assert.NoError(t, Compare(reference, MustDefault()))

	// Тексты и сроки могут отличаться.
	defs := Reference()
	defs[0].Title = "Note de besoin"
	defs[0].MaxDays = 10
	assert.NoError(t, Compare(reference, mustNew(t, defs)))
}

func TestCompare_Mismatch(t *testing.T) {
	variant, err := Parse([]byte(variantYAML))
	require.NoError(t, err)

	withRole := Reference()
	withRole[1].ResponsibleRole = domain.RoleMarketsService

	withTarget := Reference()
	withTarget[9].OnRejectTarget = &domain.StepRef{Phase: 1, Step: 1}

	tests := []struct {
		name  string
		want  *Catalog
		got   *Catalog
		field string
	}{
		{name: "variant over stored reference", want: variant, got: MustDefault(), field: "role"},
		{name: "stored has extra steps", want: mustNew(t, Reference()[:5]), got: MustDefault(), field: "step"},
		{name: "stored misses steps", want: MustDefault(), got: mustNew(t, Reference()[:5]), field: "step"},
		{name: "role changed", want: mustNew(t, withRole), got: MustDefault(), field: "role"},
		{name: "reject target changed", want: mustNew(t, withTarget), got: MustDefault(), field: "on_reject"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Compare(tt.want, tt.got)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrCatalogMismatch)

			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}
