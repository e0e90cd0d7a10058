package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-framegraph/engine/core"
	"github.com/spaghettifunk/anima-framegraph/engine/renderer/gpu"
)

var (
	_ gpu.Device      = (*VulkanDevice)(nil)
	_ gpu.Uploader    = (*VulkanDevice)(nil)
	_ gpu.Backend     = (*VulkanDevice)(nil)
	_ gpu.CommandList = (*CommandList)(nil)
)

// VulkanDevice implements gpu.Device and gpu.Uploader on top of a context.
type VulkanDevice struct {
	context     *VulkanContext
	queue       *gpu.DeletionQueue
	layouts     *DescriptorLayoutRegistry
	descriptors *TransientDescriptorPools
}

// NewBackend wraps a device created by the caller. The graphics queue at
// queueIndex must support transfers.
func NewBackend(physical vk.PhysicalDevice, logical vk.Device, queue vk.Queue, queueIndex uint32, framesInFlight int) (*VulkanDevice, error) {
	context, err := NewVulkanContext(physical, logical, queue, queueIndex)
	if err != nil {
		return nil, err
	}
	return NewVulkanDevice(context, framesInFlight), nil
}

func NewVulkanDevice(context *VulkanContext, framesInFlight int) *VulkanDevice {
	return &VulkanDevice{
		context:     context,
		queue:       gpu.NewDeletionQueue(framesInFlight),
		layouts:     NewDescriptorLayoutRegistry(context),
		descriptors: NewTransientDescriptorPools(context, framesInFlight, 1024),
	}
}

func (d *VulkanDevice) Context() *VulkanContext {
	return d.context
}

func (d *VulkanDevice) DescriptorLayouts() *DescriptorLayoutRegistry {
	return d.layouts
}

func (d *VulkanDevice) DescriptorPools() *TransientDescriptorPools {
	return d.descriptors
}

func (d *VulkanDevice) CreateBuffer(name string, desc gpu.BufferDescription) (gpu.Buffer, error) {
	var out *VulkanBuffer
	err := d.context.locks.SafeCall(ResourceManagement, func() error {
		var err error
		out, err = NewVulkanBuffer(d.context, name, desc, vk.MemoryPropertyDeviceLocalBit)
		return err
	})
	if err != nil {
		return nil, err
	}
	core.LogDebug("vulkan: created buffer %q (%d bytes, %s)", name, desc.Size, desc.Usage)
	return out, nil
}

func (d *VulkanDevice) CreateTexture(name string, desc gpu.TextureDescription) (gpu.Texture, error) {
	var out *VulkanImage
	err := d.context.locks.SafeCall(ResourceManagement, func() error {
		var err error
		out, err = ImageCreate(d.context, name, desc)
		return err
	})
	if err != nil {
		return nil, err
	}
	core.LogDebug("vulkan: created image %q (%dx%d, %s)", name, desc.Width, desc.Height, desc.Usage)
	return out, nil
}

func (d *VulkanDevice) DestroyBuffer(buf gpu.Buffer) {
	b, ok := buf.(*VulkanBuffer)
	if !ok {
		core.LogError("vulkan: destroy foreign buffer %T", buf)
		return
	}
	b.Destroy(d.context)
}

func (d *VulkanDevice) DestroyTexture(tex gpu.Texture) {
	img, ok := tex.(*VulkanImage)
	if !ok {
		core.LogError("vulkan: destroy foreign texture %T", tex)
		return
	}
	img.Destroy(d.context)
}

func (d *VulkanDevice) DeletionQueue() *gpu.DeletionQueue {
	return d.queue
}

func (d *VulkanDevice) ResetTransientDescriptorPools() error {
	return d.descriptors.Reset()
}

// BeginFrame allocates a primary command buffer and wraps it in a command
// list for the graph to record into.
func (d *VulkanDevice) BeginFrame() (gpu.CommandList, error) {
	cb, err := AllocateAndBeginSingleUse(d.context, d.context.CommandPool)
	if err != nil {
		return nil, err
	}
	return NewCommandList(d, cb), nil
}

// SubmitFrame ends the command list, submits it and waits for completion.
func (d *VulkanDevice) SubmitFrame(cmd gpu.CommandList) error {
	list, ok := cmd.(*CommandList)
	if !ok {
		return fmt.Errorf("submit frame: foreign command list %T", cmd)
	}
	if err := list.buffer.EndSingleUse(d.context, d.context.CommandPool, d.context.GraphicsQueue); err != nil {
		return fmt.Errorf("submit frame: %w", err)
	}
	return nil
}

// Destroy runs every pending deletion and releases the descriptor objects
// and the context.
func (d *VulkanDevice) Destroy() {
	vk.DeviceWaitIdle(d.context.LogicalDevice)
	d.queue.FlushAll()
	d.descriptors.Destroy()
	d.layouts.Destroy()
	d.context.Destroy()
}
