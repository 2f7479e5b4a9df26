package imagelink

// Config stores the imagelink server configuration.
type Config struct {
	Host      string      `toml:"host"`
	Port      int         `toml:"port"`
	Images    string      `toml:"images"`
	Backend   string      `toml:"backend"`
	MaxWidth  int         `toml:"maxWidth"`
	MaxHeight int         `toml:"maxHeight"`
	MaxArea   int         `toml:"maxArea"`
	Peers     []string    `toml:"peers"`
	Cache     CacheConfig `toml:"cache"`
	Watermark Watermark   `toml:"watermark"`
	Log       LogConfig   `toml:"log"`
}

// CacheConfig represents the configuration information regarding the cache.
type CacheConfig struct {
	Path        string `toml:"path"`
	HTTP        int64  `toml:"http"`
	Renders     string `toml:"renders"`
	Group       string `toml:"group"`
	RendersSize int64  `toml:"-"`
}

// LogConfig sets the operational log output.
type LogConfig struct {
	Level string `toml:"level"`
}

// Info contains the properties of a source image.
type Info struct {
	Source string `json:"source"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// LinkResponse is the answer of the link endpoint.
type LinkResponse struct {
	Link string `json:"link"`
}
