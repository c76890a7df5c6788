package cli

// EncryptionKeyEnv names the environment variable holding the base64 AES-256
// key used to encrypt stored snapshots.
const EncryptionKeyEnv = "TENDRIL_ENCRYPTION_KEY"

// Options contains the configuration shared by every command.
type Options struct {
	// SchemaPath is a Loam directory or a single YAML/JSON schema file.
	SchemaPath string
	// RulesPath is a Lua cross-validation script. When empty, a rules.lua
	// next to the schema is used if present.
	RulesPath string
	// Store selects the snapshot backend: "file:<dir>", "sqlite:<path>" or a
	// redis:// URL. Empty means no persistence.
	Store string
	// EncryptionKey, when set, encrypts snapshots at rest.
	EncryptionKey string
	// Mask lists key substrings whose values are masked before saving.
	Mask  []string
	Debug bool
}
