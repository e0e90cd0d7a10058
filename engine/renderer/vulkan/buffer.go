package vulkan

import (
	"errors"
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-framegraph/engine/core"
	"github.com/spaghettifunk/anima-framegraph/engine/renderer/gpu"
)

var (
	ErrNoMemoryType  = errors.New("no suitable memory type")
	ErrForeignObject = errors.New("object was not created by the vulkan device")
	ErrOutOfRange    = errors.New("upload out of range")
)

type VulkanBuffer struct {
	Name   string
	Handle vk.Buffer
	Memory vk.DeviceMemory
	desc   gpu.BufferDescription
}

func (b *VulkanBuffer) Description() gpu.BufferDescription {
	return b.desc
}

func NewVulkanBuffer(context *VulkanContext, name string, desc gpu.BufferDescription, properties vk.MemoryPropertyFlagBits) (*VulkanBuffer, error) {
	return newBuffer(context, name, desc, bufferUsage(desc.Usage), properties)
}

func newBuffer(context *VulkanContext, name string, desc gpu.BufferDescription, usage vk.BufferUsageFlags, properties vk.MemoryPropertyFlagBits) (*VulkanBuffer, error) {
	out := &VulkanBuffer{Name: name, desc: desc}

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(desc.Size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	var handle vk.Buffer
	if res := vk.CreateBuffer(context.LogicalDevice, &bufferInfo, context.Allocator, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create buffer %q: %s", name, VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	out.Handle = handle

	var memReqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.LogicalDevice, handle, &memReqs)
	memReqs.Deref()

	mem, err := context.allocate(memReqs, properties)
	if err != nil {
		vk.DestroyBuffer(context.LogicalDevice, handle, context.Allocator)
		err = fmt.Errorf("buffer %q: %w", name, err)
		core.LogError(err.Error())
		return nil, err
	}
	out.Memory = mem

	if res := vk.BindBufferMemory(context.LogicalDevice, handle, mem, 0); res != vk.Success {
		out.Destroy(context)
		err := fmt.Errorf("failed to bind buffer %q memory: %s", name, VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	return out, nil
}

// LoadData copies data into host visible buffer memory at offset.
func (b *VulkanBuffer) LoadData(context *VulkanContext, offset uint64, data []byte) error {
	if offset+uint64(len(data)) > b.desc.Size {
		return fmt.Errorf("buffer %q: %d bytes at %d: %w", b.Name, len(data), offset, ErrOutOfRange)
	}
	var ptr unsafe.Pointer
	if res := vk.MapMemory(context.LogicalDevice, b.Memory, vk.DeviceSize(offset), vk.DeviceSize(len(data)), 0, &ptr); res != vk.Success {
		err := fmt.Errorf("failed to map buffer %q: %s", b.Name, VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	copy(unsafe.Slice((*byte)(ptr), len(data)), data)
	vk.UnmapMemory(context.LogicalDevice, b.Memory)
	return nil
}

func (b *VulkanBuffer) Destroy(context *VulkanContext) {
	if b.Handle != nil {
		vk.DestroyBuffer(context.LogicalDevice, b.Handle, context.Allocator)
		b.Handle = nil
	}
	if b.Memory != nil {
		vk.FreeMemory(context.LogicalDevice, b.Memory, context.Allocator)
		b.Memory = nil
	}
}
