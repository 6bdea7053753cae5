package enabavki

import (
	"github.com/macedonia-transparency/procurement-pipeline/internal/domain"
	"github.com/macedonia-transparency/procurement-pipeline/internal/pagemodel"
)

// ParseDossier applies the five-level field-extraction strategy to one
// e-nabavki dossier page and assembles a domain.Tender plus the
// procuring entity it names (resolved-or-created by the ingest
// pipeline, not stored directly on the tender). It never returns an
// error for a missing optional field; the extraction log reports
// which fields fell through so the caller can decide whether the
// result still clears the "extraction failure" threshold.
func ParseDossier(html string, sourceURL string) (*domain.Tender, *domain.ProcuringEntity, pagemodel.ExtractionLog) {
	ex, err := pagemodel.NewExtractor(html)
	if err != nil {
		return &domain.Tender{SourceURL: sourceURL}, nil, pagemodel.ExtractionLog{MissingFields: []string{"*parse_error*"}}
	}

	results, extractLog := ex.ExtractAll(pagemodel.DossierFields())

	t := &domain.Tender{
		SourcePortal: domain.PortalENabavki,
		SourceURL:    sourceURL,
		TenderNumber: results["tender_number"].Value,
		Title:        results["title"].Value,
		ProcedureType: results["procedure_type"].Value,
		CPVCode:      results["cpv_code"].Value,
		Currency:     domain.CurrencyMKD,
		Contact: domain.ContactBlock{
			Person: results["contact_person"].Value,
			Email:  results["contact_email"].Value,
			Phone:  results["contact_phone"].Value,
		},
	}

	if v, err := pagemodel.ParseMoney(results["estimated_value"].Value); err == nil {
		t.EstimatedValue = v
	}
	if v, err := pagemodel.ParseMoney(results["awarded_value"].Value); err == nil {
		t.AwardedValue = v
	}
	if v, err := pagemodel.ParseDate(results["publication_date"].Value); err == nil {
		t.PublicationDate = v
	}
	if v, err := pagemodel.ParseDate(results["opening_date"].Value); err == nil {
		t.OpeningDate = v
	}
	if v, err := pagemodel.ParseDate(results["closing_date"].Value); err == nil {
		t.ClosingDate = v
	}
	if v, err := pagemodel.ParseDate(results["signing_date"].Value); err == nil {
		t.SigningDate = v
	}
	if status, ok := pagemodel.ParseStatus(results["status"].Value); ok {
		t.Status = status
	} else {
		t.Status = domain.StatusOpen
	}
	if n, err := pagemodel.ParseInt(results["amendments_count"].Value); err == nil {
		t.AmendmentsCount = n
	}
	if t.PublicationDate != nil {
		t.Year = t.PublicationDate.Year()
	}

	var entity *domain.ProcuringEntity
	if name := results["procuring_entity"].Value; name != "" {
		entity = &domain.ProcuringEntity{LegalName: name}
	}

	return t, entity, extractLog
}
