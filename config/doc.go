// Package config loads service configuration and holds the live rendering
// flags that pipeline nodes subscribe to.
//
// LoadConfig uses Viper to read a YAML file, a .env file and environment
// variables (RENDER_ prefix, e.g. RENDER_RENDERING_INSCATTERING=false) into
// a struct. Rendering wraps the rendering section in a thread-safe holder:
//
//	rendering := config.NewRendering(cfg.Rendering, log)
//	sub, _ := rendering.Subscribe(config.FlagInscattering, observer)
//	defer sub.Cancel()
//	rendering.Set(config.FlagInscattering, true) // observer.OnConfigChange runs
//
// Watcher keeps Rendering in sync with the config file while the process runs.
package config
