package di

// ComponentNames lists the keys the render binary registers.
type ComponentNames struct {
	Config       string
	Logger       string
	Rendering    string
	Framebuffers string
	Shader       string
	Metrics      string
	Engine       string
	Graph        string
	Watcher      string
	Console      string
}

// Names holds the registration keys.
var Names = ComponentNames{
	Config:       "config",
	Logger:       "logger",
	Rendering:    "rendering",
	Framebuffers: "framebuffers",
	Shader:       "shader",
	Metrics:      "render_metrics",
	Engine:       "engine",
	Graph:        "graph",
	Watcher:      "config_watcher",
	Console:      "console",
}
