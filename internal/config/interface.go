package config

// Option defines a configuration option that can be passed to Load
type Option func(*options) error

// options holds internal configuration options
type options struct {
	configPath string
	envPrefix  string
	envFiles   []string
	searchDirs []string
}

func defaultOptions() *options {
	return &options{
		envPrefix:  DefaultEnvPrefix,
		envFiles:   []string{".env"},
		searchDirs: []string{"/etc", "."},
	}
}

// WithConfigFile specifies an explicit configuration file path
func WithConfigFile(path string) Option {
	return func(o *options) error {
		o.configPath = path
		return nil
	}
}

// WithEnvPrefix specifies a custom environment variable prefix
// Default is "SENSORNODE"
func WithEnvPrefix(prefix string) Option {
	return func(o *options) error {
		o.envPrefix = prefix
		return nil
	}
}

// WithEnvFiles replaces the list of optional .env files loaded before the
// environment is read. Passing nothing disables .env loading.
func WithEnvFiles(files ...string) Option {
	return func(o *options) error {
		o.envFiles = files
		return nil
	}
}

// WithSearchDirs replaces the directories searched for sensornode.toml.
func WithSearchDirs(dirs ...string) Option {
	return func(o *options) error {
		o.searchDirs = dirs
		return nil
	}
}
