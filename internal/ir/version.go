package ir

// Version constants for the story schema and engine.
const (
	// SchemaVersion is the story config schema version.
	SchemaVersion = "1"

	// EngineVersion is the storyweave engine version.
	EngineVersion = "0.1.0"
)
