package agrimarket

// Version information for the agrimarket service
var (
	// Version is the current service version
	Version = "development"

	// APIVersion is the current HTTP API version
	APIVersion = "v1"

	// BuildDate is set during build time
	BuildDate = "development"

	// GitCommit is set during build time
	GitCommit = "unknown"
)
