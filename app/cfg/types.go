package cfg

type Cfg struct {
	// HTTP server configuration
	Port         string
	APIAccessKey string

	// Analysis configuration
	WorkerCount          int
	FetchTimeout         int
	AnthropicAPIKey      string
	AnalyzerSettingsFile string

	// Persistence configuration
	ProjectDir string
	AutoSave   bool
	DBPath     string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
