package pagemodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macedonia-transparency/procurement-pipeline/internal/domain"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("15.03.2024")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, 2024, d.Year())
	assert.Equal(t, 15, d.Day())

	empty, err := ParseDate("")
	require.NoError(t, err)
	assert.Nil(t, empty)

	_, err = ParseDate("not a date")
	assert.Error(t, err)
}

func TestParseMoney(t *testing.T) {
	v, err := ParseMoney("1.234.567,89")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, domain.NewDecimalFromMajor(1234567, 89), *v)

	v, err = ParseMoney("1234567.89")
	require.NoError(t, err)
	assert.Equal(t, domain.NewDecimalFromMajor(1234567, 89), *v)

	v, err = ParseMoney("500")
	require.NoError(t, err)
	assert.Equal(t, domain.NewDecimalFromMajor(500, 0), *v)

	nilv, err := ParseMoney("")
	require.NoError(t, err)
	assert.Nil(t, nilv)
}

func TestParseStatus(t *testing.T) {
	s, ok := ParseStatus("Отворен")
	assert.True(t, ok)
	assert.Equal(t, domain.StatusOpen, s)

	s, ok = ParseStatus("Поништен од страна на договорниот орган")
	assert.True(t, ok)
	assert.Equal(t, domain.StatusCancelled, s)

	_, ok = ParseStatus("nonsense")
	assert.False(t, ok)
}

func TestExtractorFallsThroughLevels(t *testing.T) {
	html := `<html><body>
		<div>Проценета вредност: 120.000,00</div>
		<span id="lblSubject">Изградба на пат</span>
	</body></html>`

	ex, err := NewExtractor(html)
	require.NoError(t, err)

	results, log := ex.ExtractAll([]Field{
		{Name: "title", ControlID: "lblSubject"},
		{Name: "estimated_value", LabelPhrases: []string{"Проценета вредност"}},
		{Name: "missing", ControlID: "lblNope", Selector: ".nope"},
	})

	assert.Equal(t, StrategyByID, results["title"].Strategy)
	assert.Equal(t, "Изградба на пат", results["title"].Value)
	assert.True(t, results["estimated_value"].Found)
	assert.Contains(t, log.MissingFields, "missing")
}
