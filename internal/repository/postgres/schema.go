package postgres

// Schema holds one snapshot. Tables carry no foreign keys: broken references
// are tolerated on load and dropped by the services' restore step.
const Schema = `
CREATE TABLE IF NOT EXISTS patients (
	position           INTEGER NOT NULL,
	id                 INTEGER PRIMARY KEY,
	family_name        TEXT NOT NULL,
	given_name         TEXT NOT NULL,
	birth_date         DATE,
	sex                TEXT NOT NULL DEFAULT '',
	address            TEXT NOT NULL DEFAULT '',
	phone              TEXT NOT NULL DEFAULT '',
	email              TEXT NOT NULL DEFAULT '',
	national_health_id TEXT NOT NULL DEFAULT '',
	blood_group        TEXT NOT NULL DEFAULT '',
	record_id          INTEGER,
	record_created_at  TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS practitioners (
	position           INTEGER NOT NULL,
	id                 INTEGER PRIMARY KEY,
	family_name        TEXT NOT NULL,
	given_name         TEXT NOT NULL,
	birth_date         DATE,
	sex                TEXT NOT NULL DEFAULT '',
	address            TEXT NOT NULL DEFAULT '',
	phone              TEXT NOT NULL DEFAULT '',
	email              TEXT NOT NULL DEFAULT '',
	login              TEXT NOT NULL UNIQUE,
	secret_hash        TEXT NOT NULL DEFAULT '',
	active             BOOLEAN NOT NULL DEFAULT TRUE,
	specialty          TEXT NOT NULL DEFAULT '',
	license_number     TEXT NOT NULL DEFAULT '',
	availability_hours TEXT NOT NULL DEFAULT '',
	archived           BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS administrators (
	position    INTEGER NOT NULL,
	id          INTEGER PRIMARY KEY,
	family_name TEXT NOT NULL,
	given_name  TEXT NOT NULL,
	birth_date  DATE,
	sex         TEXT NOT NULL DEFAULT '',
	address     TEXT NOT NULL DEFAULT '',
	phone       TEXT NOT NULL DEFAULT '',
	email       TEXT NOT NULL DEFAULT '',
	login       TEXT NOT NULL UNIQUE,
	secret_hash TEXT NOT NULL DEFAULT '',
	active      BOOLEAN NOT NULL DEFAULT TRUE,
	scope       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS history_entries (
	position    INTEGER NOT NULL,
	id          INTEGER PRIMARY KEY,
	patient_id  INTEGER NOT NULL,
	category    TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	occurred_on DATE NOT NULL,
	severity    TEXT NOT NULL,
	active      BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS consultations (
	position         INTEGER NOT NULL,
	id               INTEGER PRIMARY KEY,
	start_time       TIMESTAMPTZ NOT NULL,
	duration_minutes INTEGER NOT NULL,
	reason           TEXT NOT NULL,
	status           TEXT NOT NULL,
	observations     TEXT NOT NULL DEFAULT '',
	diagnosis        TEXT NOT NULL DEFAULT '',
	practitioner_id  INTEGER NOT NULL,
	patient_id       INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_consultations_practitioner ON consultations (practitioner_id, start_time);
CREATE INDEX IF NOT EXISTS idx_consultations_patient ON consultations (patient_id, start_time);
`
