package chainstore

// schema.go owns the table definitions for the registry index store.
//
// Per SPEC_FULL's Open Question resolution, this implements the "operator"
// schema shape with a dedicated categories table: providers.category holds
// the category's namehash and references categories(hash). The category
// label lives only in categories; a provider row does not carry its
// category's name.

const schemaDDL = `
CREATE TABLE IF NOT EXISTS categories (
	hash  TEXT PRIMARY KEY,
	label TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS providers (
	hash          TEXT PRIMARY KEY,
	name          TEXT NOT NULL UNIQUE,
	provider_id   TEXT NOT NULL,
	provider_name TEXT NOT NULL DEFAULT '',
	site          TEXT NOT NULL DEFAULT '',
	description   TEXT NOT NULL DEFAULT '',
	wallet        TEXT NOT NULL DEFAULT '',
	price         TEXT NOT NULL DEFAULT '',
	instructions  TEXT NOT NULL DEFAULT '',
	category      TEXT NOT NULL REFERENCES categories(hash),
	created       INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_providers_category ON providers(category);
CREATE INDEX IF NOT EXISTS idx_providers_provider_id ON providers(provider_id);

CREATE TABLE IF NOT EXISTS usdc_events (
	tx_hash      TEXT NOT NULL,
	log_index    INTEGER NOT NULL,
	block_number INTEGER NOT NULL,
	direction    TEXT NOT NULL,
	counterparty TEXT NOT NULL,
	amount_units TEXT NOT NULL,
	PRIMARY KEY (tx_hash, log_index)
);

CREATE INDEX IF NOT EXISTS idx_usdc_events_block ON usdc_events(block_number);

CREATE TABLE IF NOT EXISTS usdc_call_ledger (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	client_id      TEXT NOT NULL,
	provider_id    TEXT NOT NULL,
	amount_units   TEXT NOT NULL,
	usdc_tx_hash   TEXT,
	usdc_log_index INTEGER,
	timestamp_ms   INTEGER NOT NULL,
	status         TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_call_ledger_client ON usdc_call_ledger(client_id);

CREATE TABLE IF NOT EXISTS client_totals (
	client_id  TEXT PRIMARY KEY,
	spent      TEXT NOT NULL DEFAULT '0',
	day_bucket TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS ingest_checkpoint (
	id                     INTEGER PRIMARY KEY CHECK (id = 1),
	last_checkpoint_block  INTEGER NOT NULL
);
`

// noteColumns whitelists the note keys that apply_note is allowed to map to
// a providers column; anything else is rejected before ever reaching a SQL
// statement, since note keys come straight off the chain and are never
// trusted as column identifiers.
var noteColumns = map[string]string{
	"~provider-id":   "provider_id",
	"~wallet":        "wallet",
	"~description":   "description",
	"~instructions":  "instructions",
	"~price":         "price",
	"~provider-name": "provider_name",
	"~site":          "site",
}

// accessListNoteKey and signersNoteKey are the two notes the delegation
// checker reads off the operator TBA; they are not columns on providers.
// isKnownNoteKey accepts them alongside the noteColumns keys; ApplyNote
// consults noteColumns alone, and the delegation checker keeps its own
// copies of these two keys.
const (
	accessListNoteKey = "~access-list"
	signersNoteKey    = "~signers"
)

func isKnownNoteKey(key string) bool {
	if _, ok := noteColumns[key]; ok {
		return true
	}
	return key == accessListNoteKey || key == signersNoteKey
}
