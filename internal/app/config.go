package app

import "time"

// Defaults mirror the observed configuration of the archive pull: the
// Piranesi Scalar book, offsets 0..6700 in steps of 100 records per window,
// and a flat ten second pause before retrying a failed window.
const (
	DefaultEndpoint       = "https://scalar.usc.edu/works/piranesidigitalproject/rdf/instancesof/content"
	DefaultOutDir         = "data/scalar_data"
	DefaultUpperBound     = 6700
	DefaultStep           = 100
	DefaultWindowSize     = 100
	DefaultPause          = 10 * time.Second
	DefaultRequestTimeout = 30 * time.Second
	DefaultUserAgent      = "scalarpull/1.0 (+https://github.com/DigitalPiranesi/scalarpull)"
)

// Config holds runtime configuration for one harvest run. Everything the
// observed system hard-coded is externalized here: endpoint, pagination
// bounds, retry pause, exclusion set, output location.
type Config struct {
	// Endpoint is the Scalar content API base URL.
	Endpoint string
	// OutDir receives the timestamp-named artifact.
	OutDir string
	// OutputPath, when set, overrides timestamp naming with an explicit path.
	OutputPath string

	// Pagination
	UpperBound int
	Step       int
	WindowSize int

	// Retry
	Pause    time.Duration
	Backoff  bool
	MaxPause time.Duration

	// Extraction
	Exclusions []string

	// HTTP
	UserAgent      string
	RequestTimeout time.Duration

	// Cache
	CacheDir    string
	CacheMaxAge time.Duration
	CacheClear  bool

	// Behavior
	DryRun  bool
	Verbose bool
}
