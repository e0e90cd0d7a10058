package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-framegraph/engine/core"
)

// VulkanContext holds the handles the frame graph backend records against.
// Instance, surface and device creation happen elsewhere; the context only
// borrows them and owns the command pool it creates.
type VulkanContext struct {
	PhysicalDevice vk.PhysicalDevice
	LogicalDevice  vk.Device
	Allocator      *vk.AllocationCallbacks

	GraphicsQueue      vk.Queue
	GraphicsQueueIndex uint32
	CommandPool        vk.CommandPool

	Memory vk.PhysicalDeviceMemoryProperties

	locks *VulkanLockPool
}

func NewVulkanContext(physical vk.PhysicalDevice, logical vk.Device, queue vk.Queue, queueIndex uint32) (*VulkanContext, error) {
	vc := &VulkanContext{
		PhysicalDevice:     physical,
		LogicalDevice:      logical,
		GraphicsQueue:      queue,
		GraphicsQueueIndex: queueIndex,
		locks:              NewVulkanLockPool(),
	}
	vc.locks.SetQueueFamily(queueIndex)

	vk.GetPhysicalDeviceMemoryProperties(physical, &vc.Memory)
	vc.Memory.Deref()

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: queueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(logical, &poolCreateInfo, vc.Allocator, &pool); res != vk.Success {
		err := fmt.Errorf("failed to create command pool: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	vc.CommandPool = pool
	core.LogDebug("vulkan context ready on queue family %d", queueIndex)
	return vc, nil
}

func (vc *VulkanContext) FindMemoryIndex(typeFilter, propertyFlags uint32) int32 {
	for i := uint32(0); i < vc.Memory.MemoryTypeCount; i++ {
		// Check each memory type to see if its bit is set to 1.
		vc.Memory.MemoryTypes[i].Deref()
		if (typeFilter&(1<<i)) != 0 && (uint32(vc.Memory.MemoryTypes[i].PropertyFlags)&propertyFlags) == propertyFlags {
			return int32(i)
		}
	}
	core.LogWarn("Unable to find suitable memory type!")
	return -1
}

// allocate backs reqs with memory of the requested properties.
func (vc *VulkanContext) allocate(reqs vk.MemoryRequirements, properties vk.MemoryPropertyFlagBits) (vk.DeviceMemory, error) {
	index := vc.FindMemoryIndex(reqs.MemoryTypeBits, uint32(properties))
	if index < 0 {
		return nil, ErrNoMemoryType
	}
	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  reqs.Size,
		MemoryTypeIndex: uint32(index),
	}
	var mem vk.DeviceMemory
	err := vc.locks.SafeCall(MemoryManagement, func() error {
		if res := vk.AllocateMemory(vc.LogicalDevice, &allocInfo, vc.Allocator, &mem); res != vk.Success {
			return fmt.Errorf("allocate %d bytes: %s", reqs.Size, VulkanResultString(res))
		}
		return nil
	})
	return mem, err
}

// Destroy releases the command pool. The device itself stays with its owner.
func (vc *VulkanContext) Destroy() {
	if vc.CommandPool != nil {
		vk.DestroyCommandPool(vc.LogicalDevice, vc.CommandPool, vc.Allocator)
		vc.CommandPool = nil
	}
}
