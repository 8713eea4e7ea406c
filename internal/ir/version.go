package ir

// Version constants for the render IR and kernel.
const (
	// IRVersion is the render IR schema version. Part of every document hash.
	IRVersion = "1"

	// EngineVersion is the Flux kernel version.
	EngineVersion = "0.1.0"
)
