package store

// Schema is the full DDL applied by the orchestrator's migrate step.
// It is embedded as a plain string rather than a migration-framework
// file set, matching the teacher's preference for explicit, readable
// setup code over a heavier dependency; the two portals share one
// tenders table distinguished by source_portal (SPEC_FULL.md's
// resolution of the tenders/epazar_tenders unification question),
// exposed to analysts through the unified_tenders view.
const Schema = `
CREATE TABLE IF NOT EXISTS procuring_entities (
	id          BIGSERIAL PRIMARY KEY,
	legal_name  TEXT NOT NULL,
	tax_id      TEXT NOT NULL DEFAULT '',
	address     TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (legal_name, tax_id)
);

CREATE TABLE IF NOT EXISTS bidders (
	id          BIGSERIAL PRIMARY KEY,
	legal_name  TEXT NOT NULL,
	tax_id      TEXT NOT NULL DEFAULT '',
	address     TEXT NOT NULL DEFAULT '',
	manager     TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (legal_name, tax_id)
);

CREATE TABLE IF NOT EXISTS tenders (
	id                  BIGSERIAL PRIMARY KEY,
	tender_number       TEXT NOT NULL,
	year                INT NOT NULL,
	source_portal       TEXT NOT NULL,
	source_url          TEXT NOT NULL DEFAULT '',
	title               TEXT NOT NULL DEFAULT '',
	description         TEXT NOT NULL DEFAULT '',
	procuring_entity_id BIGINT REFERENCES procuring_entities(id),
	procedure_type      TEXT NOT NULL DEFAULT '',
	cpv_code            TEXT NOT NULL DEFAULT '',
	category            TEXT NOT NULL DEFAULT '',
	currency            TEXT NOT NULL DEFAULT 'MKD',
	estimated_value_units BIGINT,
	awarded_value_units BIGINT,
	publication_date    TIMESTAMPTZ,
	opening_date        TIMESTAMPTZ,
	closing_date        TIMESTAMPTZ,
	signing_date        TIMESTAMPTZ,
	status              TEXT NOT NULL DEFAULT 'open',
	contact_person      TEXT NOT NULL DEFAULT '',
	contact_email       TEXT NOT NULL DEFAULT '',
	contact_phone       TEXT NOT NULL DEFAULT '',
	raw_data            JSONB NOT NULL DEFAULT '{}',
	amendments_count    INT NOT NULL DEFAULT 0,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (tender_number, year)
);

CREATE TABLE IF NOT EXISTS lots (
	id              BIGSERIAL PRIMARY KEY,
	tender_id       BIGINT NOT NULL REFERENCES tenders(id) ON DELETE CASCADE,
	lot_number      TEXT NOT NULL,
	title           TEXT NOT NULL DEFAULT '',
	estimated_value_units BIGINT,
	actual_value_units BIGINT,
	UNIQUE (tender_id, lot_number)
);

CREATE TABLE IF NOT EXISTS tender_bids (
	id                  BIGSERIAL PRIMARY KEY,
	tender_id           BIGINT NOT NULL REFERENCES tenders(id) ON DELETE CASCADE,
	lot_id              BIGINT REFERENCES lots(id) ON DELETE CASCADE,
	bidder_id           BIGINT NOT NULL REFERENCES bidders(id),
	amount_units        BIGINT NOT NULL,
	rank                INT NOT NULL DEFAULT 0,
	winner              BOOLEAN NOT NULL DEFAULT false,
	disqualified        BOOLEAN NOT NULL DEFAULT false,
	disqualified_reason TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS documents (
	id                BIGSERIAL PRIMARY KEY,
	tender_id         BIGINT NOT NULL REFERENCES tenders(id) ON DELETE CASCADE,
	source_url        TEXT NOT NULL,
	local_path        TEXT NOT NULL DEFAULT '',
	mime              TEXT NOT NULL DEFAULT '',
	file_size_bytes   BIGINT NOT NULL DEFAULT 0,
	page_count        INT NOT NULL DEFAULT 0,
	extraction_status TEXT NOT NULL DEFAULT 'pending',
	extracted_text    TEXT NOT NULL DEFAULT '',
	specifications    JSONB NOT NULL DEFAULT '{}',
	status_payload    JSONB NOT NULL DEFAULT '{}',
	attempts          INT NOT NULL DEFAULT 0,
	last_attempt_at   TIMESTAMPTZ,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (tender_id, source_url)
);

CREATE TABLE IF NOT EXISTS product_items (
	id             BIGSERIAL PRIMARY KEY,
	document_id    BIGINT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	tender_id      BIGINT NOT NULL REFERENCES tenders(id) ON DELETE CASCADE,
	name           TEXT NOT NULL,
	quantity       DOUBLE PRECISION,
	unit           TEXT NOT NULL DEFAULT '',
	unit_price_units  BIGINT,
	total_price_units BIGINT,
	specifications JSONB NOT NULL DEFAULT '{}',
	category       TEXT NOT NULL DEFAULT '',
	embedding      VECTOR(1536)
);

CREATE TABLE IF NOT EXISTS risk_flags (
	id           BIGSERIAL PRIMARY KEY,
	tender_id    BIGINT NOT NULL REFERENCES tenders(id) ON DELETE CASCADE,
	flag_type    TEXT NOT NULL,
	severity     TEXT NOT NULL,
	score        DOUBLE PRECISION NOT NULL,
	evidence     JSONB NOT NULL DEFAULT '{}',
	explanation  TEXT NOT NULL DEFAULT '',
	detected_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (tender_id, flag_type)
);

CREATE TABLE IF NOT EXISTS crawl_cursors (
	id                  BIGSERIAL PRIMARY KEY,
	portal              TEXT NOT NULL,
	category            TEXT NOT NULL DEFAULT '',
	year                INT,
	last_page           INT NOT NULL DEFAULT 0,
	last_tender_number  TEXT NOT NULL DEFAULT '',
	last_run_at         TIMESTAMPTZ,
	last_run_error_count INT NOT NULL DEFAULT 0,
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (portal, category, year)
);

CREATE OR REPLACE VIEW unified_tenders AS
SELECT t.*, pe.legal_name AS procuring_entity_name
FROM tenders t
LEFT JOIN procuring_entities pe ON pe.id = t.procuring_entity_id;

CREATE MATERIALIZED VIEW IF NOT EXISTS procuring_entity_award_stats AS
SELECT
	procuring_entity_id,
	count(*) FILTER (WHERE status = 'awarded') AS awarded_count,
	count(*) AS total_count
FROM tenders
GROUP BY procuring_entity_id;

CREATE OR REPLACE FUNCTION refresh_risk_views() RETURNS void AS $$
BEGIN
	REFRESH MATERIALIZED VIEW CONCURRENTLY procuring_entity_award_stats;
END;
$$ LANGUAGE plpgsql;
`
