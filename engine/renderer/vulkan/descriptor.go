package vulkan

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-framegraph/engine/core"
)

// DescriptorBinding is one binding of a descriptor set layout.
type DescriptorBinding struct {
	Binding uint32
	Type    vk.DescriptorType
	Count   uint32
	Stages  vk.ShaderStageFlagBits
}

// layoutKey hashes the bindings in order. Two binding lists with the same
// contents share a layout.
func layoutKey(bindings []DescriptorBinding) uint64 {
	h := fnv.New64a()
	var buf [16]byte
	for _, b := range bindings {
		binary.LittleEndian.PutUint32(buf[0:], b.Binding)
		binary.LittleEndian.PutUint32(buf[4:], uint32(b.Type))
		binary.LittleEndian.PutUint32(buf[8:], b.Count)
		binary.LittleEndian.PutUint32(buf[12:], uint32(b.Stages))
		h.Write(buf[:])
	}
	return h.Sum64()
}

// DescriptorLayoutRegistry creates each distinct descriptor set layout once
// and owns it until Destroy.
type DescriptorLayoutRegistry struct {
	context *VulkanContext
	layouts map[uint64]vk.DescriptorSetLayout
}

func NewDescriptorLayoutRegistry(context *VulkanContext) *DescriptorLayoutRegistry {
	return &DescriptorLayoutRegistry{
		context: context,
		layouts: make(map[uint64]vk.DescriptorSetLayout),
	}
}

func (r *DescriptorLayoutRegistry) Get(bindings []DescriptorBinding) (vk.DescriptorSetLayout, error) {
	key := layoutKey(bindings)
	var layout vk.DescriptorSetLayout
	err := r.context.locks.SafeCall(DescriptorManagement, func() error {
		if existing, ok := r.layouts[key]; ok {
			layout = existing
			return nil
		}
		vkBindings := make([]vk.DescriptorSetLayoutBinding, len(bindings))
		for i, b := range bindings {
			count := b.Count
			if count == 0 {
				count = 1
			}
			vkBindings[i] = vk.DescriptorSetLayoutBinding{
				Binding:         b.Binding,
				DescriptorType:  b.Type,
				DescriptorCount: count,
				StageFlags:      vk.ShaderStageFlags(b.Stages),
			}
		}
		if res := vk.CreateDescriptorSetLayout(r.context.LogicalDevice, &vk.DescriptorSetLayoutCreateInfo{
			SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
			BindingCount: uint32(len(vkBindings)),
			PBindings:    vkBindings,
		}, r.context.Allocator, &layout); res != vk.Success {
			return fmt.Errorf("failed to create descriptor set layout: %s", VulkanResultString(res))
		}
		r.layouts[key] = layout
		return nil
	})
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	return layout, nil
}

func (r *DescriptorLayoutRegistry) Len() int {
	return len(r.layouts)
}

func (r *DescriptorLayoutRegistry) Destroy() {
	for key, layout := range r.layouts {
		vk.DestroyDescriptorSetLayout(r.context.LogicalDevice, layout, r.context.Allocator)
		delete(r.layouts, key)
	}
}

// TransientDescriptorPools hands out descriptor sets that live for one
// frame. Each frame in flight has its own list of pools; Reset moves to the
// next frame and resets that frame's pools, which the GPU has finished with.
type TransientDescriptorPools struct {
	context *VulkanContext
	maxSets uint32
	sizes   []vk.DescriptorPoolSize

	frames  [][]vk.DescriptorPool
	current int
	// index of the pool sets are allocated from in the current frame
	active int
}

var defaultPoolSizes = []vk.DescriptorPoolSize{
	{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: 256},
	{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: 256},
	{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: 256},
	{Type: vk.DescriptorTypeStorageImage, DescriptorCount: 64},
}

func NewTransientDescriptorPools(context *VulkanContext, framesInFlight int, maxSets uint32) *TransientDescriptorPools {
	if framesInFlight < 1 {
		framesInFlight = 1
	}
	return &TransientDescriptorPools{
		context: context,
		maxSets: maxSets,
		sizes:   defaultPoolSizes,
		frames:  make([][]vk.DescriptorPool, framesInFlight+1),
	}
}

func (p *TransientDescriptorPools) createPool() (vk.DescriptorPool, error) {
	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(p.context.LogicalDevice, &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       p.maxSets,
		PoolSizeCount: uint32(len(p.sizes)),
		PPoolSizes:    p.sizes,
	}, p.context.Allocator, &pool); res != vk.Success {
		err := fmt.Errorf("failed to create descriptor pool: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	return pool, nil
}

// Allocate returns a descriptor set valid until the frame's pools are reset.
func (p *TransientDescriptorPools) Allocate(layout vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	for {
		pools := p.frames[p.current]
		if p.active >= len(pools) {
			pool, err := p.createPool()
			if err != nil {
				return nil, err
			}
			p.frames[p.current] = append(pools, pool)
			pools = p.frames[p.current]
		}
		var set vk.DescriptorSet
		res := vk.AllocateDescriptorSets(p.context.LogicalDevice, &vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     pools[p.active],
			DescriptorSetCount: 1,
			PSetLayouts:        []vk.DescriptorSetLayout{layout},
		}, &set)
		switch res {
		case vk.Success:
			return set, nil
		case vk.ErrorOutOfPoolMemory, vk.ErrorFragmentedPool:
			p.active++
		default:
			err := fmt.Errorf("failed to allocate descriptor set: %s", VulkanResultString(res))
			core.LogError(err.Error())
			return nil, err
		}
	}
}

func (p *TransientDescriptorPools) Reset() error {
	p.current = (p.current + 1) % len(p.frames)
	p.active = 0
	for _, pool := range p.frames[p.current] {
		if res := vk.ResetDescriptorPool(p.context.LogicalDevice, pool, 0); res != vk.Success {
			return fmt.Errorf("failed to reset descriptor pool: %s", VulkanResultString(res))
		}
	}
	return nil
}

func (p *TransientDescriptorPools) Destroy() {
	for i, pools := range p.frames {
		for _, pool := range pools {
			vk.DestroyDescriptorPool(p.context.LogicalDevice, pool, p.context.Allocator)
		}
		p.frames[i] = nil
	}
}
