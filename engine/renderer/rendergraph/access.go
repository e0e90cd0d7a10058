package rendergraph

import (
	"strings"

	"github.com/spaghettifunk/anima-framegraph/engine/renderer/gpu"
)

// AccessFlags describe how a pass uses a resource. Shader stage flags
// (Vertex, Pixel, Compute) qualify the binding flags (Uniform, Storage,
// Sampled); the remaining flags name fixed-function stages on their own.
type AccessFlags uint32

const (
	AccessVertex AccessFlags = 1 << iota
	AccessPixel
	AccessCompute
	AccessUniform
	AccessStorage
	AccessSampled
	AccessIndex
	AccessIndirect
	AccessVertexBuffer
	AccessTransfer
	AccessColorAttachment
	AccessDepthAttachment
	AccessStencilAttachment
)

var accessFlagNames = []string{
	"Vertex",
	"Pixel",
	"Compute",
	"Uniform",
	"Storage",
	"Sampled",
	"Index",
	"Indirect",
	"VertexBuffer",
	"Transfer",
	"ColorAttachment",
	"DepthAttachment",
	"StencilAttachment",
}

func (f AccessFlags) String() string {
	if f == 0 {
		return "None"
	}
	var parts []string
	for i, name := range accessFlagNames {
		if f&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}

var shaderStages = []struct {
	flag  AccessFlags
	stage gpu.PipelineStage
}{
	{AccessVertex, gpu.StageVertexShader},
	{AccessPixel, gpu.StageFragmentShader},
	{AccessCompute, gpu.StageComputeShader},
}

// accessRule maps one flag to what it means for synchronization and usage.
// A zero stage means the stage comes from the shader stage flags.
type accessRule struct {
	flag    AccessFlags
	stage   gpu.PipelineStage
	read    gpu.Access
	write   gpu.Access
	buffer  [2]gpu.BufferUsage  // read, write
	texture [2]gpu.TextureUsage // read, write
}

var accessRules = []accessRule{
	{
		flag:   AccessUniform,
		read:   gpu.AccessUniformRead,
		buffer: [2]gpu.BufferUsage{gpu.BufferUsageUniform, gpu.BufferUsageNone},
	},
	{
		flag:    AccessStorage,
		read:    gpu.AccessShaderRead,
		write:   gpu.AccessShaderWrite,
		buffer:  [2]gpu.BufferUsage{gpu.BufferUsageStorage, gpu.BufferUsageStorage},
		texture: [2]gpu.TextureUsage{gpu.TextureUsageStorage, gpu.TextureUsageStorage},
	},
	{
		flag:    AccessSampled,
		read:    gpu.AccessShaderRead,
		texture: [2]gpu.TextureUsage{gpu.TextureUsageSampled, gpu.TextureUsageNone},
	},
	{
		flag:   AccessIndex,
		stage:  gpu.StageVertexInput,
		read:   gpu.AccessIndexRead,
		buffer: [2]gpu.BufferUsage{gpu.BufferUsageIndex, gpu.BufferUsageNone},
	},
	{
		flag:   AccessVertexBuffer,
		stage:  gpu.StageVertexInput,
		read:   gpu.AccessVertexAttributeRead,
		buffer: [2]gpu.BufferUsage{gpu.BufferUsageVertex, gpu.BufferUsageNone},
	},
	{
		flag:   AccessIndirect,
		stage:  gpu.StageDrawIndirect,
		read:   gpu.AccessIndirectCommandRead,
		buffer: [2]gpu.BufferUsage{gpu.BufferUsageIndirect, gpu.BufferUsageNone},
	},
	{
		flag:    AccessTransfer,
		stage:   gpu.StageTransfer,
		read:    gpu.AccessTransferRead,
		write:   gpu.AccessTransferWrite,
		buffer:  [2]gpu.BufferUsage{gpu.BufferUsageTransferSrc, gpu.BufferUsageTransferDst},
		texture: [2]gpu.TextureUsage{gpu.TextureUsageTransferSrc, gpu.TextureUsageTransferDst},
	},
	{
		flag:    AccessColorAttachment,
		stage:   gpu.StageColorAttachmentOutput,
		read:    gpu.AccessColorAttachmentRead,
		write:   gpu.AccessColorAttachmentWrite,
		texture: [2]gpu.TextureUsage{gpu.TextureUsageColor, gpu.TextureUsageColor},
	},
	{
		flag:    AccessDepthAttachment,
		stage:   gpu.StageEarlyFragmentTests | gpu.StageLateFragmentTests,
		read:    gpu.AccessDepthStencilAttachmentRead,
		write:   gpu.AccessDepthStencilAttachmentRead | gpu.AccessDepthStencilAttachmentWrite,
		texture: [2]gpu.TextureUsage{gpu.TextureUsageDepth, gpu.TextureUsageDepth},
	},
	{
		flag:    AccessStencilAttachment,
		stage:   gpu.StageEarlyFragmentTests | gpu.StageLateFragmentTests,
		read:    gpu.AccessDepthStencilAttachmentRead,
		write:   gpu.AccessDepthStencilAttachmentRead | gpu.AccessDepthStencilAttachmentWrite,
		texture: [2]gpu.TextureUsage{gpu.TextureUsageStencil, gpu.TextureUsageStencil},
	},
}

// resolvedAccess is what a set of access flags means for one resource kind.
type resolvedAccess struct {
	stage        gpu.PipelineStage
	access       gpu.Access
	bufferUsage  gpu.BufferUsage
	textureUsage gpu.TextureUsage
}

func (r resolvedAccess) ok(kind ResourceKind) bool {
	if r.stage == gpu.StageNone || r.access == gpu.AccessNone {
		return false
	}
	if kind == ResourceKindTexture {
		return r.textureUsage != gpu.TextureUsageNone
	}
	return r.bufferUsage != gpu.BufferUsageNone
}

// resolveAccess runs flags through the lookup tables. Rules that do not
// apply to the resource kind, or that need a shader stage and got none,
// contribute nothing.
func resolveAccess(kind ResourceKind, flags AccessFlags, write bool) resolvedAccess {
	var shaderStage gpu.PipelineStage
	for _, s := range shaderStages {
		if flags&s.flag != 0 {
			shaderStage |= s.stage
		}
	}

	rw := 0
	if write {
		rw = 1
	}

	var out resolvedAccess
	for _, rule := range accessRules {
		if flags&rule.flag == 0 {
			continue
		}
		stage := rule.stage
		if stage == gpu.StageNone {
			stage = shaderStage
		}
		access := rule.read
		if write {
			access = rule.write
		}
		if stage == gpu.StageNone || access == gpu.AccessNone {
			continue
		}
		if kind == ResourceKindTexture {
			if rule.texture[rw] == gpu.TextureUsageNone {
				continue
			}
			out.textureUsage |= rule.texture[rw]
		} else {
			if rule.buffer[rw] == gpu.BufferUsageNone {
				continue
			}
			out.bufferUsage |= rule.buffer[rw]
		}
		out.stage |= stage
		out.access |= access
	}
	return out
}

// desiredLayout is the layout a texture must be in for an access.
func desiredLayout(flags AccessFlags, stage gpu.PipelineStage, write bool, format gpu.Format) gpu.ImageLayout {
	depth := flags&(AccessDepthAttachment|AccessStencilAttachment) != 0
	if write {
		switch {
		case stage&gpu.StageComputeShader != 0, flags&AccessStorage != 0:
			return gpu.LayoutGeneral
		case flags&AccessColorAttachment != 0:
			return gpu.LayoutColorAttachment
		case depth && format.HasStencil():
			return gpu.LayoutDepthStencilAttachment
		case depth:
			return gpu.LayoutDepthAttachment
		case flags&AccessTransfer != 0:
			return gpu.LayoutTransferDst
		}
		return gpu.LayoutAttachment
	}
	switch {
	case depth && format.HasStencil():
		return gpu.LayoutDepthStencilReadOnly
	case depth:
		return gpu.LayoutDepthReadOnly
	case flags&AccessStorage != 0:
		return gpu.LayoutGeneral
	case flags&AccessTransfer != 0:
		return gpu.LayoutTransferSrc
	}
	return gpu.LayoutReadOnly
}
