package processors

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// MeshMagic starts every cooked mesh file ("PAWS" read as little-endian).
const MeshMagic uint32 = 0x53574150

// MeshVertex is the on-disk vertex: 32 bytes, little-endian float32s.
type MeshVertex struct {
	Position [3]float32
	Normal   [3]float32
	UV       [2]float32
}

// SubMesh is one draw batch with a single material.
type SubMesh struct {
	MaterialIndex uint32
	Vertices      []MeshVertex
	Indices       []uint16
}

// Mesh is the cooked mesh layout:
//
//	uint32 magic
//	int32  submesh count
//	per submesh:
//	  uint32 vertex count, uint32 index count, uint32 material index
//	  vertices
//	  uint16 indices
type Mesh struct {
	SubMeshes []SubMesh
}

// Encode writes m in the cooked layout.
func (m *Mesh) Encode(w io.Writer) error {
	bw := bufio.NewWriter(w)
	le := binary.LittleEndian

	if err := binary.Write(bw, le, MeshMagic); err != nil {
		return fmt.Errorf("mesh: write header: %w", err)
	}
	if err := binary.Write(bw, le, int32(len(m.SubMeshes))); err != nil {
		return fmt.Errorf("mesh: write header: %w", err)
	}
	for i, sm := range m.SubMeshes {
		header := [3]uint32{uint32(len(sm.Vertices)), uint32(len(sm.Indices)), sm.MaterialIndex}
		if err := binary.Write(bw, le, header); err != nil {
			return fmt.Errorf("mesh: submesh %d header: %w", i, err)
		}
		if err := binary.Write(bw, le, sm.Vertices); err != nil {
			return fmt.Errorf("mesh: submesh %d vertices: %w", i, err)
		}
		if err := binary.Write(bw, le, sm.Indices); err != nil {
			return fmt.Errorf("mesh: submesh %d indices: %w", i, err)
		}
	}
	return bw.Flush()
}

// DecodeMesh reads a cooked mesh.
func DecodeMesh(r io.Reader) (*Mesh, error) {
	br := bufio.NewReader(r)
	le := binary.LittleEndian

	var magic uint32
	if err := binary.Read(br, le, &magic); err != nil {
		return nil, fmt.Errorf("mesh: read header: %w", err)
	}
	if magic != MeshMagic {
		return nil, fmt.Errorf("mesh: bad magic %#x", magic)
	}
	var count int32
	if err := binary.Read(br, le, &count); err != nil {
		return nil, fmt.Errorf("mesh: read header: %w", err)
	}
	if count < 0 {
		return nil, fmt.Errorf("mesh: negative submesh count %d", count)
	}

	m := &Mesh{SubMeshes: make([]SubMesh, 0, count)}
	for i := int32(0); i < count; i++ {
		var header [3]uint32
		if err := binary.Read(br, le, &header); err != nil {
			return nil, fmt.Errorf("mesh: submesh %d header: %w", i, err)
		}
		sm := SubMesh{
			MaterialIndex: header[2],
			Vertices:      make([]MeshVertex, header[0]),
			Indices:       make([]uint16, header[1]),
		}
		if err := binary.Read(br, le, sm.Vertices); err != nil {
			return nil, fmt.Errorf("mesh: submesh %d vertices: %w", i, err)
		}
		if err := binary.Read(br, le, sm.Indices); err != nil {
			return nil, fmt.Errorf("mesh: submesh %d indices: %w", i, err)
		}
		m.SubMeshes = append(m.SubMeshes, sm)
	}
	return m, nil
}
