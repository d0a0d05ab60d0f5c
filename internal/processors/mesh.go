package processors

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/starford/assetcook/internal/handler"
	"github.com/starford/assetcook/internal/logfields"
	"github.com/starford/assetcook/internal/settings"
	"github.com/starford/assetcook/internal/storage"
)

// SettingMeshExtension is the processor setting for the cooked mesh extension.
const SettingMeshExtension = "MeshExtension"

const defaultMeshExtension = ".mesh"

// MeshImporter converts glTF models into the cooked mesh layout, one submesh per
// primitive. FBX has no Go decoder and is left to the catch-all handler.
type MeshImporter struct {
	outExt string
	logger *slog.Logger
}

var _ handler.Handler = (*MeshImporter)(nil)

// NewMesh creates the mesh handler.
func NewMesh(set *settings.Settings, logger *slog.Logger) *MeshImporter {
	return &MeshImporter{
		outExt: set.ProcessorSetting(SettingMeshExtension, defaultMeshExtension),
		logger: logger,
	}
}

func (m *MeshImporter) Name() string { return "mesh" }

func (m *MeshImporter) Claims() []handler.Claim {
	return []handler.Claim{
		{Extension: ".glb", Priority: 1},
		{Extension: ".gltf", Priority: 1},
	}
}

// Import decodes src and writes the cooked mesh next to dst with the mesh
// extension.
func (m *MeshImporter) Import(ctx context.Context, src, dst string) error {
	out := replaceExt(dst, m.outExt)
	if err := os.Remove(out); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("mesh: remove existing %s: %w", out, err)
	}

	doc, err := gltf.Open(src)
	if err != nil {
		return fmt.Errorf("mesh: decode %s: %w", src, err)
	}

	var mesh Mesh
	for _, gm := range doc.Meshes {
		for i, prim := range gm.Primitives {
			sm, err := convertPrimitive(doc, prim)
			if err != nil {
				return fmt.Errorf("mesh: %s primitive %d: %w", gm.Name, i, err)
			}
			m.logger.Debug("mesh: adding submesh",
				slog.String("mesh", gm.Name),
				slog.Int("vertices", len(sm.Vertices)),
				slog.Int("indices", len(sm.Indices)),
				logfields.Output(out))
			mesh.SubMeshes = append(mesh.SubMeshes, sm)
		}
	}

	var buf bytes.Buffer
	if err := mesh.Encode(&buf); err != nil {
		return err
	}
	if err := storage.WriteFileAtomic(out, buf.Bytes()); err != nil {
		return fmt.Errorf("mesh: %w", err)
	}
	m.logger.Log(ctx, logfields.LevelTrace, "mesh: cooked", logfields.Path(src), logfields.Output(out))
	return nil
}

func convertPrimitive(doc *gltf.Document, prim *gltf.Primitive) (SubMesh, error) {
	var sm SubMesh

	if !isTriangleMode(prim.Mode) {
		return sm, fmt.Errorf("primitive mode %d is not a triangle mode", prim.Mode)
	}

	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return sm, errors.New("no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return sm, fmt.Errorf("read positions: %w", err)
	}
	if len(positions) > math.MaxUint16+1 {
		return sm, fmt.Errorf("%d vertices exceed 16-bit indices", len(positions))
	}

	var normals [][3]float32
	if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
		if normals, err = modeler.ReadNormal(doc, doc.Accessors[idx], nil); err != nil {
			return sm, fmt.Errorf("read normals: %w", err)
		}
	}
	var uvs [][2]float32
	if idx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		if uvs, err = modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil); err != nil {
			return sm, fmt.Errorf("read texture coordinates: %w", err)
		}
	}

	sm.Vertices = make([]MeshVertex, len(positions))
	for i, p := range positions {
		v := MeshVertex{Position: p}
		if i < len(normals) {
			v.Normal = normals[i]
		}
		if i < len(uvs) {
			v.UV = uvs[i]
		}
		sm.Vertices[i] = v
	}

	var indices []uint32
	if prim.Indices != nil {
		if indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil); err != nil {
			return sm, fmt.Errorf("read indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	if sm.Indices, err = triangulate(prim.Mode, indices, len(positions)); err != nil {
		return sm, err
	}

	if prim.Material != nil {
		sm.MaterialIndex = uint32(*prim.Material)
	}
	return sm, nil
}

func isTriangleMode(mode gltf.PrimitiveMode) bool {
	switch mode {
	case gltf.PrimitiveTriangles, gltf.PrimitiveTriangleStrip, gltf.PrimitiveTriangleFan:
		return true
	}
	return false
}

// triangulate turns indices drawn with mode into a triangle list. Strips
// alternate winding so every triangle keeps the orientation of the first.
func triangulate(mode gltf.PrimitiveMode, indices []uint32, vertexCount int) ([]uint16, error) {
	var tris []uint32
	switch mode {
	case gltf.PrimitiveTriangles:
		if len(indices)%3 != 0 {
			return nil, fmt.Errorf("%d indices do not form whole triangles", len(indices))
		}
		tris = indices
	case gltf.PrimitiveTriangleStrip:
		for i := 0; i+2 < len(indices); i++ {
			if i%2 == 0 {
				tris = append(tris, indices[i], indices[i+1], indices[i+2])
			} else {
				tris = append(tris, indices[i+1], indices[i], indices[i+2])
			}
		}
	case gltf.PrimitiveTriangleFan:
		for i := 1; i+1 < len(indices); i++ {
			tris = append(tris, indices[0], indices[i], indices[i+1])
		}
	default:
		return nil, fmt.Errorf("primitive mode %d is not a triangle mode", mode)
	}

	out := make([]uint16, len(tris))
	for i, ix := range tris {
		if int(ix) >= vertexCount {
			return nil, fmt.Errorf("index %d out of range for %d vertices", ix, vertexCount)
		}
		out[i] = uint16(ix)
	}
	return out, nil
}
