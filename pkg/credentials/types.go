package credentials

// Credentials represents the stored bearer tokens in credentials.toml.
type Credentials struct {
	Version  int                          `toml:"version"`
	Profiles map[string]ProfileCredential `toml:"profiles"`
}

// ProfileCredential holds the bearer token for a single backend profile.
type ProfileCredential struct {
	Token string `toml:"token"`
}
