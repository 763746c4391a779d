package types

// Version is the canonical project version.
// The CLI, the journal format and notification events share this version.
const Version = "0.3.0"

// ContractVersion is stamped on journal records and completion events.
// It moves in lockstep with Version.
const ContractVersion = Version
