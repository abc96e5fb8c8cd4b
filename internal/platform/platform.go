// Package platform implements the window/surface seam the engine's core
// treats as an external collaborator (§1, §4.H): window creation, Vulkan
// surface creation, and event polling live here, outside gpu.Device.
package platform

import (
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
)

// Platform is the seam gpu.Device depends on (as gpu.SurfaceProvider) for
// everything window-related, grounded on the teacher's asche.Platform
// interface split between windowing and device concerns.
type Platform interface {
	RequiredInstanceExtensions() []string
	CreateSurface(instance vk.Instance) (vk.Surface, error)
	FramebufferSize() (width, height int)
	ShouldClose() bool
	PollEvents()
	Destroy()
}

// GLFWPlatform implements Platform on top of github.com/go-gl/glfw/v3.3/glfw,
// the teacher's own windowing dependency (core.go, display.go).
type GLFWPlatform struct {
	window *glfw.Window
}

// NewGLFWPlatform initializes GLFW, hints a Vulkan-only client API (no GL
// context — the teacher's render_test.go does the same with
// glfw.ClientAPI/glfw.NoAPI), wires glfw's loader into vk.SetGetInstanceProcAddr,
// and opens a window of the requested size.
func NewGLFWPlatform(width, height int, title string) (*GLFWPlatform, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("platform: glfw init: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.Visible, glfw.True)
	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())

	if err := vk.Init(); err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("platform: vulkan loader init: %w", err)
	}

	window, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("platform: create window: %w", err)
	}

	return &GLFWPlatform{window: window}, nil
}

// RequiredInstanceExtensions returns the Vulkan instance extensions glfw
// says the platform needs to present to this window.
func (p *GLFWPlatform) RequiredInstanceExtensions() []string {
	return p.window.GetRequiredInstanceExtensions()
}

// CreateSurface creates a VkSurfaceKHR for this window against instance.
func (p *GLFWPlatform) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	surfacePtr, err := p.window.CreateWindowSurface(instance, nil)
	if err != nil {
		return nil, fmt.Errorf("platform: create window surface: %w", err)
	}
	return vk.SurfaceFromPointer(surfacePtr), nil
}

// FramebufferSize reports the window's current drawable size in pixels, used
// by swapchain (re)creation.
func (p *GLFWPlatform) FramebufferSize() (width, height int) {
	return p.window.GetFramebufferSize()
}

// ShouldClose reports whether the platform received a close request.
func (p *GLFWPlatform) ShouldClose() bool {
	return p.window.ShouldClose()
}

// PollEvents drains the platform's event queue (§6 step 8).
func (p *GLFWPlatform) PollEvents() {
	glfw.PollEvents()
}

// Destroy tears down the window and terminates glfw.
func (p *GLFWPlatform) Destroy() {
	p.window.Destroy()
	glfw.Terminate()
}
