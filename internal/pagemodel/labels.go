package pagemodel

import "regexp"

// DossierFields lists the e-nabavki/e-pazar dossier fields pagemodel
// knows how to locate, in the order spec.md §4.2 enumerates them. The
// label phrases are the Macedonian (Cyrillic) strings that appear next
// to each field's value on both portals' rendered detail pages.
func DossierFields() []Field {
	return []Field{
		{
			Name:         "tender_number",
			ControlID:    "lblProcedureNumber",
			Selector:     ".procedure-number, .tender-number",
			LabelPhrases: []string{"Број на оглас", "Број на постапка", "Деловоден број"},
			Regex:        regexp.MustCompile(`(?:Број на оглас|Број на постапка)\s*[:\-]?\s*([0-9\-/]+)`),
		},
		{
			Name:         "title",
			ControlID:    "lblSubject",
			Selector:     ".procedure-subject, .tender-title",
			LabelPhrases: []string{"Предмет на договорот", "Предмет на набавка", "Наслов"},
		},
		{
			Name:         "procuring_entity",
			ControlID:    "lblContractingAuthority",
			Selector:     ".contracting-authority",
			LabelPhrases: []string{"Договорен орган", "Институција", "Назив на купувачот"},
		},
		{
			Name:         "procedure_type",
			ControlID:    "lblProcedureType",
			Selector:     ".procedure-type",
			LabelPhrases: []string{"Вид на постапка", "Тип на постапка"},
		},
		{
			Name:         "cpv_code",
			ControlID:    "lblCPV",
			Selector:     ".cpv-code",
			LabelPhrases: []string{"ЦПВ", "CPV код", "Шифра на ЦПВ"},
			Regex:        regexp.MustCompile(`\b(\d{8}-\d)\b`),
		},
		{
			Name:         "estimated_value",
			ControlID:    "lblEstimatedValue",
			Selector:     ".estimated-value",
			LabelPhrases: []string{"Проценета вредност", "Вредност на набавката без ДДВ"},
			Regex:        regexp.MustCompile(`Проценета вредност\s*[:\-]?\s*([0-9.,]+)`),
		},
		{
			Name:         "awarded_value",
			ControlID:    "lblAwardedValue",
			Selector:     ".awarded-value, .contract-value",
			LabelPhrases: []string{"Вредност на договор", "Договорена вредност"},
		},
		{
			Name:         "currency",
			ControlID:    "lblCurrency",
			Selector:     ".currency",
			LabelPhrases: []string{"Валута"},
		},
		{
			Name:         "publication_date",
			ControlID:    "lblPublicationDate",
			Selector:     ".publication-date",
			LabelPhrases: []string{"Датум на објава", "Објавено на"},
		},
		{
			Name:         "opening_date",
			ControlID:    "lblOpeningDate",
			Selector:     ".opening-date",
			LabelPhrases: []string{"Датум на отворање", "Отворање на понуди"},
		},
		{
			Name:         "closing_date",
			ControlID:    "lblClosingDate",
			Selector:     ".closing-date, .deadline",
			LabelPhrases: []string{"Краен рок", "Датум на истекување", "Рок за поднесување"},
		},
		{
			Name:         "signing_date",
			ControlID:    "lblSigningDate",
			Selector:     ".signing-date",
			LabelPhrases: []string{"Датум на потпишување", "Склучен на"},
		},
		{
			Name:         "status",
			ControlID:    "lblStatus",
			Selector:     ".status-badge, .procedure-status",
			LabelPhrases: []string{"Статус"},
		},
		{
			Name:         "contact_person",
			ControlID:    "lblContactPerson",
			Selector:     ".contact-person",
			LabelPhrases: []string{"Лице за контакт", "Контакт лице"},
		},
		{
			Name:         "contact_email",
			ControlID:    "lblContactEmail",
			Selector:     ".contact-email",
			LabelPhrases: []string{"Е-пошта", "Email"},
			Regex:        regexp.MustCompile(`[\w.+-]+@[\w-]+\.[\w.-]+`),
		},
		{
			Name:         "contact_phone",
			ControlID:    "lblContactPhone",
			Selector:     ".contact-phone",
			LabelPhrases: []string{"Телефон"},
		},
		{
			Name:         "amendments_count",
			ControlID:    "lblAmendmentsCount",
			Selector:     ".amendments-count",
			LabelPhrases: []string{"Број на измени", "Измени на огласот"},
			Regex:        regexp.MustCompile(`Број на измени\s*[:\-]?\s*(\d+)`),
		},
		{
			Name:         "winner_name",
			ControlID:    "lblWinnerName",
			Selector:     ".winner, .awarded-bidder",
			LabelPhrases: []string{"Избран понудувач", "Добитник", "Договарач"},
		},
		{
			Name:         "bidder_count",
			ControlID:    "lblBidderCount",
			Selector:     ".bidder-count",
			LabelPhrases: []string{"Број на понудувачи", "Примени понуди"},
			Regex:        regexp.MustCompile(`Број на понудувачи\s*[:\-]?\s*(\d+)`),
		},
		{
			Name:         "lot_count",
			ControlID:    "lblLotCount",
			Selector:     ".lot-count",
			LabelPhrases: []string{"Број на делови", "Поделба на делови"},
		},
	}
}
