package config

// Version identifies the tool in User-Agent headers. Overridden at release
// time via -ldflags "-X .../internal/config.Version=...".
var Version = "0.9.36"
