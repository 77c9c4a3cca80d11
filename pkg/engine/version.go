package engine

// Version is the engine release, compared against the version a project
// config asks for.
const Version = "v0.3.0"
