package dieselvk

import (
	"github.com/cockroachdb/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
)

// Window is what the frame loop needs from the windowing system. Sizes are
// framebuffer pixels, not screen coordinates.
type Window interface {
	ExtentSource
	WasResized() bool
	ResetResized()
	PollEvents()
	// WaitEvents blocks until at least one event arrives.
	WaitEvents()
	ShouldClose() bool
}

// GLFWDisplay is a glfw window set up for Vulkan (no client API).
type GLFWDisplay struct {
	window  *glfw.Window
	resized bool
}

// NewGLFWDisplay initialises glfw, opens a window and points the vulkan
// loader at glfw's instance proc address. Call Destroy to terminate glfw.
func NewGLFWDisplay(cfg WindowConfig) (*GLFWDisplay, error) {
	if err := glfw.Init(); err != nil {
		return nil, errors.Wrap(err, "glfw init")
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return nil, errors.Mark(errors.New("glfw reports no vulkan loader"), ErrPrecondition)
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	resizable := glfw.False
	if cfg.Resizable {
		resizable = glfw.True
	}
	glfw.WindowHint(glfw.Resizable, resizable)

	window, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, errors.Wrap(err, "create window")
	}
	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vk.Init(); err != nil {
		window.Destroy()
		glfw.Terminate()
		return nil, errors.Wrap(err, "vulkan loader init")
	}

	d := &GLFWDisplay{window: window}
	window.SetFramebufferSizeCallback(func(_ *glfw.Window, _, _ int) {
		d.resized = true
	})
	return d, nil
}

func (d *GLFWDisplay) FramebufferSize() (int, int) { return d.window.GetFramebufferSize() }
func (d *GLFWDisplay) WasResized() bool            { return d.resized }
func (d *GLFWDisplay) ResetResized()               { d.resized = false }
func (d *GLFWDisplay) PollEvents()                 { glfw.PollEvents() }
func (d *GLFWDisplay) WaitEvents()                 { glfw.WaitEvents() }
func (d *GLFWDisplay) ShouldClose() bool           { return d.window.ShouldClose() }

// RequiredInstanceExtensions lists the surface extensions glfw needs.
func (d *GLFWDisplay) RequiredInstanceExtensions() []string {
	return d.window.GetRequiredInstanceExtensions()
}

// CreateSurface creates the window surface. The caller destroys it with
// vk.DestroySurface before destroying the instance.
func (d *GLFWDisplay) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	ptr, err := d.window.CreateWindowSurface(instance, nil)
	if err != nil {
		return vk.NullSurface, errors.Wrap(err, "create window surface")
	}
	return vk.SurfaceFromPointer(ptr), nil
}

func (d *GLFWDisplay) Destroy() {
	d.window.Destroy()
	glfw.Terminate()
}
