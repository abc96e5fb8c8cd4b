// Package app provides the thin aggregator the teacher's Application/
// BaseVulkanApp split is generalized into (§9 Design Notes, §4.I): it owns
// the platform, device, and frame graph builder, and drives the exact
// 8-step per-tick protocol from §6, explicitly passing references down to
// layers rather than reaching through package-level singletons.
package app

import (
	"os"
	"time"

	"github.com/coregfx/turbo/internal/config"
	"github.com/coregfx/turbo/internal/exitcode"
	"github.com/coregfx/turbo/internal/framegraph"
	"github.com/coregfx/turbo/internal/gpu"
	"github.com/coregfx/turbo/internal/logging"
	"github.com/coregfx/turbo/internal/platform"
)

// BuildGraphFunc registers one frame's passes. swapchainTexture is the
// already-acquired swapchain image, pre-registered by Run as an external
// resource (§6 step 4) — callers only need to declare what they do with it.
type BuildGraphFunc func(app *App, graph *framegraph.Builder, swapchainTexture framegraph.Version)

// App owns every singleton the original keeps in a service locator (§9) and
// hands references down explicitly instead.
type App struct {
	Config   config.Config
	Platform platform.Platform
	Device   *gpu.Device
	Log      *logging.Loggers

	layers     []Layer
	buildGraph BuildGraphFunc

	lastTick time.Time
}

// New wires an already-initialized platform and device into an App. Callers
// are expected to have called platform.NewGLFWPlatform and gpu.Init
// themselves — App does not own bring-up, only the run loop (§4.I).
func New(cfg config.Config, p platform.Platform, device *gpu.Device, log *logging.Loggers, buildGraph BuildGraphFunc) *App {
	return &App{
		Config:     cfg,
		Platform:   p,
		Device:     device,
		Log:        log,
		buildGraph: buildGraph,
	}
}

// AddLayer registers a layer. Start runs the next time Run is called, in
// registration order; Shutdown runs in reverse registration order when Run
// returns.
func (a *App) AddLayer(l Layer) {
	a.layers = append(a.layers, l)
}

// Run executes the 8-step frame protocol from §6 until the platform reports
// a close request, then shuts every layer down and terminates the device.
// A FatalInit-class failure starting a layer exits the process immediately
// with exitcode.RHICriticalError — there is no recovery path a layer start
// failure leaves open.
func (a *App) Run() {
	for _, l := range a.layers {
		if l.Start == nil {
			continue
		}
		if err := l.Start(a); err != nil {
			if a.Log != nil && a.Log.Error != nil {
				a.Log.Error.Printf("app: layer %q failed to start: %v", l.Name, err)
			}
			os.Exit(int(exitcode.RHICriticalError))
		}
	}

	a.lastTick = time.Now()

	for !a.Platform.ShouldClose() {
		a.tick()
	}

	for i := len(a.layers) - 1; i >= 0; i-- {
		if a.layers[i].Shutdown != nil {
			a.layers[i].Shutdown(a)
		}
	}

	a.Device.Shutdown()
	a.Platform.Destroy()
}

func (a *App) tick() {
	now := time.Now()
	dt := now.Sub(a.lastTick).Seconds()
	a.lastTick = now

	// Step 1: tick all layers (CPU work).
	for _, l := range a.layers {
		if l.Tick != nil {
			l.Tick(a, dt)
		}
	}

	// Step 2: BeginFrame — may report not-ready on swapchain resize. A
	// swapchain marked stale by the previous acquire or present is rebuilt
	// first.
	if a.Device.SwapchainStale() {
		a.Device.ResizeSwapchain(a.Config)
	}
	cmd, ready := a.Device.BeginFrame()
	if !ready {
		a.Platform.PollEvents()
		return
	}

	// Step 3: build this frame's graph.
	graph := framegraph.NewBuilder(a.Device)

	// Step 4: register the acquired swapchain texture, Undefined->PresentSrc.
	swapchainHandle := a.Device.AcquiredSwapchainTexture()
	var swapchainVersion framegraph.Version
	graph.AddPass("__acquire_swapchain", func(s *framegraph.PassSetup) {
		swapchainVersion = s.RegisterExternalTexture("swapchain", swapchainHandle, gpu.LayoutUndefined, gpu.LayoutPresentSrc)
	}, func(*gpu.CommandBuffer, func(framegraph.ResourceID) gpu.TextureHandle) {})

	a.buildGraph(a, graph, swapchainVersion)

	// Step 5: compile.
	graph.Compile()

	// Step 6: execute against this frame's command buffer.
	graph.Execute(cmd)
	graph.Release()

	// Step 7: present.
	a.Device.PresentFrame(cmd)

	// Step 8: poll window events.
	a.Platform.PollEvents()
}
