// Package nodes holds the render-graph stages built on the dag package.
//
// Blur is a generic blur pass from one framebuffer into another. Haze is a
// Blur with a fixed radius that only runs while the inscattering rendering
// flag is on; it is used twice, from the scene into the intermediate haze
// buffer and from there into the final haze buffer, progressively fading
// distant geometry into the sky colour.
package nodes
