package document

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidate_RejectsInsightWithoutFiles(t *testing.T) {
	d := Document{
		ID: NewID(TypeInsight, "x"),
		Common: Common{
			Type:   TypeInsight,
			Branch: "main",
			Status: StatusActive,
		},
		Metadata: Metadata{Insight: &Insight{}},
	}
	err := Validate(d)
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestValidate_AcceptsValidInsight(t *testing.T) {
	d := Document{
		ID: NewID(TypeInsight, "x"),
		Common: Common{
			Type:   TypeInsight,
			Branch: "main",
			Status: StatusActive,
		},
		Metadata: Metadata{Insight: &Insight{Files: []string{"a.py"}}},
	}
	assert.NoError(t, Validate(d))
}

func TestValidate_RejectsUnknownType(t *testing.T) {
	d := Document{
		ID:     "x:1",
		Common: Common{Type: Type("bogus"), Branch: "main"},
	}
	assert.ErrorIs(t, Validate(d), ErrInvalidDocument)
}

func TestValidate_RejectsMissingBranch(t *testing.T) {
	d := Document{
		ID:     NewID(TypeNote, "x"),
		Common: Common{Type: TypeNote},
	}
	assert.ErrorIs(t, Validate(d), ErrInvalidDocument)
}

func TestTypeMultipliers_CoverAllTypes(t *testing.T) {
	for _, typ := range AllTypes {
		_, ok := TypeMultipliers[typ]
		assert.True(t, ok, "missing multiplier for %s", typ)
	}
}

func TestIsBranchFiltered(t *testing.T) {
	assert.True(t, IsBranchFiltered(TypeFileMetadata))
	assert.False(t, IsBranchFiltered(TypeNote))
}

func TestImpactTierFor(t *testing.T) {
	assert.Equal(t, ImpactHigh, ImpactTierFor(6))
	assert.Equal(t, ImpactMedium, ImpactTierFor(2))
	assert.Equal(t, ImpactLow, ImpactTierFor(1))
	assert.Equal(t, ImpactLow, ImpactTierFor(0))
}

func TestInsightStatus(t *testing.T) {
	i := &Insight{}
	assert.Equal(t, StatusActive, i.Status())
	i.DeprecatedAt = time.Now()
	assert.Equal(t, StatusDeprecated, i.Status())
}
