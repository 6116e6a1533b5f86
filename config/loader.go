package config

import (
	"fmt"
	"maps"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. RENDER_RENDERING_BLOOM.
const EnvPrefix = "RENDER"

// FileSystem is the slice of the OS the loader touches.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

type osFileSystem struct{}

func (osFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (osFileSystem) LoadEnv(path string) error { return godotenv.Load(path) }

type loaderOptions struct {
	fs         FileSystem
	configFile string
	envFile    string
	defaults   map[string]any
}

// LoaderOption customises Load and LoadConfig.
type LoaderOption func(*loaderOptions)

func WithFileSystem(fs FileSystem) LoaderOption {
	return func(o *loaderOptions) { o.fs = fs }
}

// WithConfigFile skips the search for config.yml.
func WithConfigFile(path string) LoaderOption {
	return func(o *loaderOptions) { o.configFile = path }
}

// WithEnvFile skips the search for .env.
func WithEnvFile(path string) LoaderOption {
	return func(o *loaderOptions) { o.envFile = path }
}

// WithDefaults sets defaults by dotted key. A key with a default can be
// overridden from the environment even when the file omits it.
func WithDefaults(defaults map[string]any) LoaderOption {
	return func(o *loaderOptions) {
		if o.defaults == nil {
			o.defaults = map[string]any{}
		}
		maps.Copy(o.defaults, defaults)
	}
}

// sources picks the config and env files for serviceName. Explicit paths
// win; otherwise the first existing candidate is used.
func (o *loaderOptions) sources(serviceName string) (configFile, envFile string) {
	configFile, envFile = o.configFile, o.envFile
	if configFile == "" {
		configFile = o.firstExisting(
			"./cmd/"+serviceName+"/config.yml",
			"../../cmd/"+serviceName+"/config.yml",
			"./config/config.yml",
			"./config.yml",
		)
	}
	if envFile == "" {
		envFile = o.firstExisting("./cmd/"+serviceName+"/.env", ".env."+serviceName, ".env")
	}
	return configFile, envFile
}

func (o *loaderOptions) firstExisting(paths ...string) string {
	for _, p := range paths {
		if o.fs.Exists(p) {
			return p
		}
	}
	return ""
}

// LoadConfig fills cfg for serviceName. Later sources override earlier
// ones: defaults, the YAML file, the .env file, the process environment.
func LoadConfig(serviceName string, cfg any, opts ...LoaderOption) error {
	_, err := Load(serviceName, cfg, opts...)
	return err
}

// Load is LoadConfig that also hands back the viper instance, which a
// Watcher needs to follow the same file.
func Load(serviceName string, cfg any, opts ...LoaderOption) (*viper.Viper, error) {
	o := loaderOptions{fs: osFileSystem{}}
	for _, apply := range opts {
		apply(&o)
	}
	configFile, envFile := o.sources(serviceName)

	v := viper.New()
	RenderingDefaults(v)
	for k, val := range o.defaults {
		v.SetDefault(k, val)
	}

	if configFile != "" && o.fs.Exists(configFile) {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	}
	if envFile != "" && o.fs.Exists(envFile) {
		if err := o.fs.LoadEnv(envFile); err != nil {
			return nil, fmt.Errorf("loading env file %s: %w", envFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding %s config: %w", serviceName, err)
	}
	return v, nil
}
