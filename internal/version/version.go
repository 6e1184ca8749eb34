package version

// Version is the current version of dbporter.
// Can be overridden at build time with -ldflags "-X ...version.Version=..."
var Version = "0.3.0"

// Name is the application name.
const Name = "dbporter"

// Description is a short description of the application.
const Description = "Chunked cross-database table migration tool"
