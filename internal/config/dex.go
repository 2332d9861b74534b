// Package config also contains DEX-specific configuration surfaces.
package config

// Dex defines network endpoints and defaults for decentralized execution.
type Dex struct {
	Chain       string `yaml:"chain"` // e.g. "solana"
	RpcURL      string `yaml:"rpc_url"`
	Commitment  string `yaml:"commitment"`   // processed|confirmed|finalized
	JupiterBase string `yaml:"jupiter_base"` // https://quote-api.jup.ag
}

// Wallet stores env-backed signing material metadata. The key itself is read from
// SOLANA_PRIVATE_KEY_BASE58 and never from YAML.
type Wallet struct {
	PrivateKeyEnv string `yaml:"private_key_env"`
}
