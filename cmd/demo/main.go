// Command demo is a minimal runnable program gluing GLFWPlatform, gpu.Device
// and framegraph.Builder together behind the App aggregator's 8-step
// protocol. The teacher repo is itself structured as an importable library
// with no main (vulkan-go-asche/test/render_test.go exercises it from a
// test); this gives the engine a concrete, testable entry point instead.
package main

import (
	"log"
	"os"

	"github.com/coregfx/turbo/internal/app"
	"github.com/coregfx/turbo/internal/config"
	"github.com/coregfx/turbo/internal/exitcode"
	"github.com/coregfx/turbo/internal/framegraph"
	"github.com/coregfx/turbo/internal/gpu"
	"github.com/coregfx/turbo/internal/logging"
	"github.com/coregfx/turbo/internal/platform"
)

func main() {
	cfg, err := config.Load("config.json")
	if err != nil {
		log.Printf("demo: failed to load config.json, using defaults: %v", err)
		cfg = config.Default()
	}

	loggers, err := logging.NewFileLoggers()
	if err != nil {
		log.Printf("demo: failed to open log files, falling back to stderr: %v", err)
		loggers = logging.NewStdLoggers(os.Stderr)
	}

	win, err := platform.NewGLFWPlatform(cfg.WindowWidth, cfg.WindowHeight, cfg.AppName)
	if err != nil {
		loggers.Error.Printf("demo: window creation failed: %v", err)
		os.Exit(int(exitcode.WindowCreationError))
	}

	device := gpu.Init(cfg, win, loggers)

	clearColor := [4]float32{0.02, 0.02, 0.05, 1.0}

	buildGraph := func(a *app.App, graph *framegraph.Builder, swapchain framegraph.Version) {
		graph.AddPass("clear_swapchain",
			func(s *framegraph.PassSetup) {
				s.Tag("category", "present")
				s.AddAttachment(swapchain, 0)
			},
			func(cmd *gpu.CommandBuffer, resolve func(framegraph.ResourceID) gpu.TextureHandle) {
				tex := resolve(swapchain.ID)
				width, height := a.Device.SwapchainExtent()
				cmd.BeginRendering([]gpu.Attachment{{Texture: tex, Clear: &clearColor}}, nil)
				cmd.SetViewport(gpu.Rect2D{Width: int32(width), Height: int32(height)})
				cmd.SetScissor(gpu.Rect2D{Width: int32(width), Height: int32(height)})
				cmd.EndRendering()
			},
		)
	}

	a := app.New(cfg, win, device, loggers, buildGraph)
	a.Run()
}
