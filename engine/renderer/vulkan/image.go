package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-framegraph/engine/core"
	"github.com/spaghettifunk/anima-framegraph/engine/renderer/gpu"
)

type VulkanImage struct {
	Name   string
	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Width  uint32
	Height uint32
	desc   gpu.TextureDescription
	// owned is false for images wrapped from elsewhere, like swapchain images.
	owned bool
}

func (i *VulkanImage) Description() gpu.TextureDescription {
	return i.desc
}

func (i *VulkanImage) subresourceRange() vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{
		AspectMask: aspectMask(i.desc.Format),
		LevelCount: i.desc.MipLevels,
		LayerCount: i.desc.Layers,
	}
}

// ImageCreate creates a device local image with one view covering every
// mip and layer.
func ImageCreate(context *VulkanContext, name string, desc gpu.TextureDescription) (*VulkanImage, error) {
	desc = desc.Normalized()
	out := &VulkanImage{Name: name, Width: desc.Width, Height: desc.Height, desc: desc, owned: true}

	imageType := vk.ImageType2d
	depth := uint32(1)
	layers := desc.Layers
	if desc.Kind == gpu.TextureKind3D {
		imageType = vk.ImageType3d
		depth, layers = desc.Layers, 1
	}
	imageInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: imageType,
		Extent: vk.Extent3D{
			Width:  desc.Width,
			Height: desc.Height,
			Depth:  depth,
		},
		MipLevels:     desc.MipLevels,
		ArrayLayers:   layers,
		Format:        vkFormat(desc.Format),
		Tiling:        vk.ImageTilingOptimal,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         imageUsage(desc.Usage),
		Samples:       vk.SampleCount1Bit,
		SharingMode:   vk.SharingModeExclusive,
	}
	if desc.Kind == gpu.TextureKindCube {
		imageInfo.Flags = vk.ImageCreateFlags(vk.ImageCreateCubeCompatibleBit)
	}

	var handle vk.Image
	if res := vk.CreateImage(context.LogicalDevice, &imageInfo, context.Allocator, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create image %q: %s", name, VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	out.Handle = handle

	var memReqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(context.LogicalDevice, handle, &memReqs)
	memReqs.Deref()

	mem, err := context.allocate(memReqs, vk.MemoryPropertyDeviceLocalBit)
	if err != nil {
		out.Destroy(context)
		err = fmt.Errorf("image %q: %w", name, err)
		core.LogError(err.Error())
		return nil, err
	}
	out.Memory = mem
	if res := vk.BindImageMemory(context.LogicalDevice, handle, mem, 0); res != vk.Success {
		out.Destroy(context)
		err := fmt.Errorf("failed to bind image %q memory: %s", name, VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	if err := out.createView(context); err != nil {
		out.Destroy(context)
		return nil, err
	}
	return out, nil
}

// WrapImage adopts an image owned elsewhere. Only the view it creates is
// destroyed with it.
func WrapImage(context *VulkanContext, name string, handle vk.Image, desc gpu.TextureDescription) (*VulkanImage, error) {
	desc = desc.Normalized()
	out := &VulkanImage{Name: name, Handle: handle, Width: desc.Width, Height: desc.Height, desc: desc}
	if err := out.createView(context); err != nil {
		return nil, err
	}
	return out, nil
}

func (i *VulkanImage) createView(context *VulkanContext) error {
	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    i.Handle,
		ViewType: imageViewType(i.desc),
		Format:   vkFormat(i.desc.Format),
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: i.subresourceRange(),
	}
	var view vk.ImageView
	if res := vk.CreateImageView(context.LogicalDevice, &viewInfo, context.Allocator, &view); res != vk.Success {
		err := fmt.Errorf("failed to create view for image %q: %s", i.Name, VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	i.View = view
	return nil
}

func (i *VulkanImage) Destroy(context *VulkanContext) {
	if i.View != nil {
		vk.DestroyImageView(context.LogicalDevice, i.View, context.Allocator)
		i.View = nil
	}
	if !i.owned {
		i.Handle = nil
		return
	}
	if i.Handle != nil {
		vk.DestroyImage(context.LogicalDevice, i.Handle, context.Allocator)
		i.Handle = nil
	}
	if i.Memory != nil {
		vk.FreeMemory(context.LogicalDevice, i.Memory, context.Allocator)
		i.Memory = nil
	}
}
