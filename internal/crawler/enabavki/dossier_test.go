package enabavki

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macedonia-transparency/procurement-pipeline/internal/domain"
)

const sampleDossier = `
<html><body>
	<span id="lblProcedureNumber">01-2024/155</span>
	<span id="lblSubject">Набавка на канцелариски материјали</span>
	<div>Договорен орган: Општина Центар</div>
	<div>Проценета вредност: 500.000,00</div>
	<div>Статус: Отворен</div>
	<span id="lblContactEmail">nabavki@centar.gov.mk</span>
</body></html>`

func TestParseDossier(t *testing.T) {
	tender, entity, log := ParseDossier(sampleDossier, "https://e-nabavki.gov.mk/detail/155")

	for _, present := range []string{"tender_number", "title", "procuring_entity", "estimated_value", "status", "contact_email"} {
		assert.NotContains(t, log.MissingFields, present, "unexpected: %v", log.MissingFields)
	}
	assert.Contains(t, log.MissingFields, "awarded_value")
	assert.Equal(t, "01-2024/155", tender.TenderNumber)
	assert.Equal(t, "Набавка на канцелариски материјали", tender.Title)
	assert.Equal(t, domain.StatusOpen, tender.Status)
	require.NotNil(t, tender.EstimatedValue)
	assert.Equal(t, domain.NewDecimalFromMajor(500000, 0), *tender.EstimatedValue)
	assert.Equal(t, "nabavki@centar.gov.mk", tender.Contact.Email)
	require.NotNil(t, entity)
	assert.Equal(t, "Општина Центар", entity.LegalName)
}

func TestParseListingPage(t *testing.T) {
	html := `<html><body><table class="tender-list">
		<tr data-tender-number="01/2024"><td><a class="detail-link" href="/detail/1">x</a></td></tr>
		<tr data-tender-number="02/2024"><td><a class="detail-link" href="/detail/2">x</a></td></tr>
	</table>
	<a class="next-page" href="?page=2">Next</a>
	</body></html>`

	rows, hasMore, err := parseListingPage(html)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "01/2024", rows[0].TenderNumber)
	assert.True(t, hasMore)
}
