// Package bmd reads and writes the console model container: a skeleton
// of bones, display-list geometry, materials and paletted textures in
// one little-endian binary blob.
package bmd

import (
	"errors"

	"nds-bmd-codec/internal/geometry"
	"nds-bmd-codec/internal/texture"
)

// ErrMalformed reports input that violates the container layout: an
// out-of-range pointer, a truncated table or an unknown display-list
// opcode. Decoding stops at the first such defect.
var ErrMalformed = errors.New("malformed model")

// Header layout. Every table pointer is an absolute file offset.
const (
	offScale      = 0x00 // world scale exponent, base 2
	offBoneCount  = 0x04
	offBoneTable  = 0x08
	offDLCount    = 0x0c
	offDLTable    = 0x10
	offTexCount   = 0x14
	offTexTable   = 0x18
	offPalCount   = 0x1c
	offPalTable   = 0x20
	offMatCount   = 0x24
	offMatTable   = 0x28
	offGroupTable = 0x2c // u16 per transform group

	headerSize = 0x30
)

// Record strides.
const (
	boneStride   = 0x40
	dlStride     = 8
	dlHeaderSize = 0x10
	texStride    = 0x14
	palStride    = 0x10
	matStride    = 0x30
)

// Model is one decoded file: bones with their local transforms, one
// geometry per bone, and the material and texture tables. Geometries
// hold world-scale-independent fixed-point coordinates; consumers apply
// 2^ScaleExponent themselves.
type Model struct {
	ScaleExponent uint32
	Bones         []Bone
	Geometries    []*geometry.Geometry
	Materials     []Material
	Textures      []*texture.Texture
}

// Bone is one skeleton node. Parent and Sibling are resolved absolute
// bone indices (-1 for none); the wire stores them relative to the
// bone's own index with 0 as the none sentinel.
type Bone struct {
	Name        string
	Parent      int
	Sibling     int
	Scale       [3]float64
	Rotation    [3]float64 // euler XYZ, radians
	Translation [3]float64

	// Parallel id lists pairing each owned display list with the
	// material it renders with.
	MaterialIDs    []int
	DisplayListIDs []int
}

// Material carries the full render state of one material record.
// Texture indexes Model.Textures (-1 = untextured).
type Material struct {
	Name    string
	Texture int

	TexScaleS   float64
	TexScaleT   float64
	TexRotation float64 // radians
	TexTransS   float64
	TexTransT   float64

	RepeatS bool
	RepeatT bool
	MirrorS bool
	MirrorT bool
	EnvMap  bool

	BlendMode  int
	CullBack   bool
	DepthEqual bool
	Alpha      int // 5-bit, 31 = opaque
	PolygonID  int

	Diffuse  [3]float64
	Ambient  [3]float64
	Specular [3]float64
	Emission [3]float64

	// VertexColored is set when no face using this material carries
	// normals, meaning the mesh is lit by vertex colors alone.
	VertexColored bool
}
