package bmd

import (
	"encoding/binary"

	"nds-bmd-codec/internal/fixed"
)

// parseMaterial decodes one 0x30-byte material record, except for the
// texture and palette references which the caller resolves.
func parseMaterial(r *reader, off int) Material {
	m := Material{
		Name:      r.cstr(int(r.u32(off))),
		Texture:   -1,
		TexScaleS: r.fix32(off+0xc, 12),
		TexScaleT: r.fix32(off+0x10, 12),
	}
	m.TexRotation = fixed.FromAngle(r.i16(off + 0x14))
	m.TexTransS = r.fix32(off+0x18, 12)
	m.TexTransT = r.fix32(off+0x1c, 12)

	texParam := r.u32(off + 0x20)
	m.RepeatS = texParam&(1<<16) != 0
	m.RepeatT = texParam&(1<<17) != 0
	m.MirrorS = texParam&(1<<18) != 0
	m.MirrorT = texParam&(1<<19) != 0
	m.EnvMap = texParam>>30&3 == 2

	polyParam := r.u32(off + 0x24)
	m.BlendMode = int(polyParam >> 4 & 3)
	m.CullBack = polyParam&(1<<6) == 0
	m.DepthEqual = polyParam&(1<<14) != 0
	m.Alpha = int(polyParam >> 16 & 0x1f)
	m.PolygonID = int(polyParam >> 24 & 0x3f)

	diffAmb := r.u32(off + 0x28)
	m.Diffuse[0], m.Diffuse[1], m.Diffuse[2] = fixed.FromRGB555(uint16(diffAmb), 2.2)
	m.Ambient[0], m.Ambient[1], m.Ambient[2] = fixed.FromRGB555(uint16(diffAmb>>16), 1)

	specEmit := r.u32(off + 0x2c)
	m.Specular[0], m.Specular[1], m.Specular[2] = fixed.FromRGB555(uint16(specEmit), 2.2)
	m.Emission[0], m.Emission[1], m.Emission[2] = fixed.FromRGB555(uint16(specEmit>>16), 1)

	return m
}

// encodeMaterialFields fills the fixed-width part of a material record.
// The name pointer at offset 0 is patched in by the segment assembler;
// texID and palID are resolved texture table slots, -1 for none.
func encodeMaterialFields(m Material, texID, palID int) []byte {
	b := make([]byte, matStride)
	binary.LittleEndian.PutUint32(b[4:], uint32(int32(texID)))
	binary.LittleEndian.PutUint32(b[8:], uint32(int32(palID)))
	binary.LittleEndian.PutUint32(b[0xc:], uint32(fixed.ToFix(m.TexScaleS, 12)))
	binary.LittleEndian.PutUint32(b[0x10:], uint32(fixed.ToFix(m.TexScaleT, 12)))
	binary.LittleEndian.PutUint16(b[0x14:], uint16(fixed.ToAngle(m.TexRotation)))
	binary.LittleEndian.PutUint32(b[0x18:], uint32(fixed.ToFix(m.TexTransS, 12)))
	binary.LittleEndian.PutUint32(b[0x1c:], uint32(fixed.ToFix(m.TexTransT, 12)))
	binary.LittleEndian.PutUint32(b[0x20:], encodeTexParam(m))
	binary.LittleEndian.PutUint32(b[0x24:], encodePolyParam(m))

	diffAmb := uint32(fixed.ToRGB555(m.Diffuse[0], m.Diffuse[1], m.Diffuse[2], 2.2))
	diffAmb |= uint32(fixed.ToRGB555(m.Ambient[0], m.Ambient[1], m.Ambient[2], 1)) << 16
	binary.LittleEndian.PutUint32(b[0x28:], diffAmb)

	specEmit := uint32(fixed.ToRGB555(m.Specular[0], m.Specular[1], m.Specular[2], 2.2))
	specEmit |= uint32(fixed.ToRGB555(m.Emission[0], m.Emission[1], m.Emission[2], 1)) << 16
	binary.LittleEndian.PutUint32(b[0x2c:], specEmit)
	return b
}

func encodeTexParam(m Material) uint32 {
	var p uint32
	if m.RepeatS {
		p |= 1 << 16
	}
	if m.RepeatT {
		p |= 1 << 17
	}
	if m.MirrorS {
		p |= 1 << 18
	}
	if m.MirrorT {
		p |= 1 << 19
	}
	if m.EnvMap {
		p |= 2 << 30
	}
	return p
}

func encodePolyParam(m Material) uint32 {
	// Front faces always render; bit 6 additionally renders back faces.
	p := uint32(1 << 7)
	p |= uint32(m.BlendMode&3) << 4
	if !m.CullBack {
		p |= 1 << 6
	}
	if m.DepthEqual {
		p |= 1 << 14
	}
	p |= uint32(m.Alpha&0x1f) << 16
	p |= uint32(m.PolygonID&0x3f) << 24
	return p
}
