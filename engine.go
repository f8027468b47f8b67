package dieselvk

import (
	"time"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// Engine wires a window, a device and the frame loop together and owns
// everything it creates. Close releases it all.
type Engine struct {
	window    Window
	device    Device
	swapchain *SwapChain
	renderer  *Renderer
	resources *Registry[Destroyer]

	// teardown runs after the device-level objects, newest first.
	teardown []func()
	now      func() time.Time
	observed bool
}

// NewEngine opens a glfw window and brings up Vulkan on it. app may carry
// the layer and device extension decorators; it is not retained.
func NewEngine(cfg Config, app Application) (e *Engine, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var teardown []func()
	defer func() {
		if err != nil {
			unwind(teardown)
		}
	}()

	display, err := NewGLFWDisplay(cfg.Window)
	if err != nil {
		return nil, err
	}
	teardown = append(teardown, display.Destroy)

	layers := cfg.Debug.Layers
	if l, ok := app.(ApplicationVulkanLayers); ok {
		layers = l.VulkanLayers()
	}
	instance, err := NewInstance(InstanceOptions{
		AppName:    cfg.Window.Title,
		APIVersion: DefaultVulkanAPIVersion,
		Extensions: display.RequiredInstanceExtensions(),
		Validation: cfg.Debug.Validation,
		Layers:     layers,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create instance")
	}
	teardown = append(teardown, instance.Destroy)

	surface, err := display.CreateSurface(instance.Handle())
	if err != nil {
		return nil, err
	}
	teardown = append(teardown, func() {
		vk.DestroySurface(instance.Handle(), surface, nil)
	})

	var extensions []string
	if x, ok := app.(ApplicationDeviceExtensions); ok {
		extensions = x.VulkanDeviceExtensions()
	}
	device, err := NewCoreDevice(instance, surface, DeviceOptions{Extensions: extensions})
	if err != nil {
		return nil, errors.Wrap(err, "create device")
	}

	e, err = newEngine(display, device, cfg.Renderer)
	if err != nil {
		device.Destroy()
		return nil, err
	}
	e.teardown = teardown
	return e, nil
}

// newEngine builds the swapchain and renderer over an existing device. The
// engine takes ownership of device.
func newEngine(window Window, device Device, cfg RendererConfig) (*Engine, error) {
	swapchain := NewSwapChain(device, window, SwapChainOptions{
		FramesInFlight: cfg.FramesInFlight,
		PresentModes:   cfg.PresentModePreference(),
		MaxSamples:     cfg.SampleCap(),
	})
	if err := swapchain.Init(); err != nil {
		return nil, errors.Wrap(err, "initialise swapchain")
	}
	renderer, err := NewRenderer(device, swapchain, window)
	if err != nil {
		swapchain.Cleanup()
		return nil, err
	}
	renderer.SetClearValues(cfg.ClearColor, cfg.ClearDepth, cfg.ClearStencil)
	return &Engine{
		window:    window,
		device:    device,
		swapchain: swapchain,
		renderer:  renderer,
		resources: NewRegistry[Destroyer](),
		now:       time.Now,
	}, nil
}

func (e *Engine) Device() Device                  { return e.device }
func (e *Engine) SwapChain() *SwapChain           { return e.swapchain }
func (e *Engine) Renderer() *Renderer             { return e.renderer }
func (e *Engine) Window() Window                  { return e.window }
func (e *Engine) Resources() *Registry[Destroyer] { return e.resources }

// NewHostBuffer creates a host-visible buffer holding data and tracks it
// until Release or Close.
func (e *Engine) NewHostBuffer(data []byte, usage vk.BufferUsageFlags) (Handle, error) {
	if len(data) == 0 {
		return Handle{}, errors.New("host buffer needs data")
	}
	buf, err := e.device.CreateBuffer(uint64(len(data)), usage,
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return Handle{}, err
	}
	if err := buf.Upload(data); err != nil {
		buf.Destroy()
		return Handle{}, err
	}
	return e.resources.Add(buf), nil
}

// NewDeviceBuffer uploads data into a device-local buffer through a host
// staging buffer and a single-time copy, then tracks it like NewHostBuffer.
// The copy has finished when NewDeviceBuffer returns.
func (e *Engine) NewDeviceBuffer(data []byte, usage vk.BufferUsageFlags) (Handle, error) {
	if len(data) == 0 {
		return Handle{}, errors.New("device buffer needs data")
	}
	size := uint64(len(data))
	staging, err := e.device.CreateBuffer(size, vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return Handle{}, errors.Wrap(err, "staging buffer")
	}
	defer staging.Destroy()
	if err := staging.Upload(data); err != nil {
		return Handle{}, err
	}

	buf, err := e.device.CreateBuffer(size, usage|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return Handle{}, err
	}
	if err := e.copyBuffer(staging, buf, size); err != nil {
		buf.Destroy()
		return Handle{}, err
	}
	return e.resources.Add(buf), nil
}

func (e *Engine) copyBuffer(src, dst Buffer, size uint64) error {
	cmd, err := e.device.BeginSingleTimeCommands()
	if err != nil {
		return errors.Wrap(err, "copy buffer")
	}
	cmd.CopyBuffer(src, dst, size)
	return errors.Wrap(e.device.EndSingleTimeCommands(cmd), "copy buffer")
}

// Release destroys a tracked resource. The device must not be using it.
func (e *Engine) Release(h Handle) bool {
	return e.resources.Remove(h)
}

// Run draws frames until the window asks to close, then drains the device.
// The first error from the application or the frame loop stops it.
func (e *Engine) Run(app Application) error {
	if obs, ok := app.(ApplicationRebuildObserver); ok && !e.observed {
		e.renderer.OnRebuild(obs.Rebuilt)
		e.observed = true
	}
	updater, _ := app.(ApplicationUpdater)

	last := e.now()
	for !e.window.ShouldClose() {
		e.window.PollEvents()
		t := e.now()
		dt := t.Sub(last)
		last = t
		if updater != nil {
			if err := updater.Update(dt); err != nil {
				e.drain()
				return errors.Wrap(err, "update")
			}
		}
		if err := e.renderer.DrawFrame(app.Record); err != nil {
			e.drain()
			return err
		}
	}
	return e.device.WaitIdle()
}

func (e *Engine) drain() {
	if err := e.device.WaitIdle(); err != nil {
		Logger().Error("device drain failed", "error", err)
	}
}

// Close destroys the renderer, the swapchain, tracked resources and the
// device, then the surface, instance and window. Close is idempotent.
func (e *Engine) Close() {
	if e.device == nil {
		return
	}
	e.drain()
	e.renderer.Destroy()
	e.swapchain.Cleanup()
	e.resources.DestroyAll()
	e.device.Destroy()
	e.device = nil
	unwind(e.teardown)
	e.teardown = nil
}

func unwind(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
