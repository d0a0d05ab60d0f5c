package processors

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"

	"github.com/qmuntal/gltf"

	"github.com/starford/assetcook/internal/apperr"
	"github.com/starford/assetcook/internal/handler"
	"github.com/starford/assetcook/internal/registry"
	"github.com/starford/assetcook/internal/settings"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuiltin_Routing(t *testing.T) {
	set := settings.Default()
	t.Setenv("PATH", "")
	t.Setenv("VULKAN_SDK", "")
	reg := registry.New(Builtin(set, quietLogger())...)

	cases := map[string]string{
		".glsl": "shader",
		".hlsl": "shader",
		".comp": "shader",
		".glb":  "mesh",
		".gltf": "mesh",
		".fbx":  "copy",
		".txt":  "copy",
	}
	for ext, want := range cases {
		h, ok := reg.Resolve(ext)
		if !ok || h.Name() != want {
			t.Errorf("Resolve(%s) = %v, want %s", ext, h, want)
		}
	}
	w, ok := reg.Wildcard()
	if !ok || w.Handler.Name() != "copy" {
		t.Errorf("wildcard = %+v", w)
	}
}

func TestCopy_ReplacesDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.txt")
	dst := filepath.Join(dir, "out", "sub", "in.txt")
	_ = os.WriteFile(src, []byte("new"), 0o644)
	_ = os.MkdirAll(filepath.Dir(dst), 0o755)
	_ = os.WriteFile(dst, []byte("old old old"), 0o644)

	if err := NewCopy(quietLogger()).Import(context.Background(), src, dst); err != nil {
		t.Fatalf("Import: %v", err)
	}
	got, _ := os.ReadFile(dst)
	if string(got) != "new" {
		t.Errorf("content = %q", got)
	}
}

func TestCopy_MissingSource(t *testing.T) {
	dir := t.TempDir()
	err := NewCopy(quietLogger()).Import(context.Background(), filepath.Join(dir, "nope"), filepath.Join(dir, "out"))
	if err == nil {
		t.Error("expected error")
	}
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	p := filepath.Join(t.TempDir(), "fake-glslang")
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
	return p
}

func shaderWith(compiler string, ext string) *Shader {
	set := settings.Default()
	set.ProcessorSettings[SettingShaderCompilerPath] = compiler
	if ext != "" {
		set.ProcessorSettings[SettingCompiledShaderExtension] = ext
	}
	return NewShader(set, quietLogger())
}

func TestShader_CompilesWithExtension(t *testing.T) {
	// Arguments: -V <src> -o <out>
	compiler := writeScript(t, `cp "$2" "$4"`)
	dir := t.TempDir()
	src := filepath.Join(dir, "lit.glsl")
	_ = os.WriteFile(src, []byte("#version 450"), 0o644)
	dst := filepath.Join(dir, "out", "shaders", "lit.glsl")

	if err := shaderWith(compiler, "").Import(context.Background(), src, dst); err != nil {
		t.Fatalf("Import: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "shaders", "lit.spv")); err != nil {
		t.Errorf("compiled output missing: %v", err)
	}

	if err := shaderWith(compiler, ".bin").Import(context.Background(), src, dst); err != nil {
		t.Fatalf("Import: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "shaders", "lit.bin")); err != nil {
		t.Errorf("custom extension output missing: %v", err)
	}
}

func TestShader_NonZeroExitFails(t *testing.T) {
	compiler := writeScript(t, "echo 'ERROR: 0:1: syntax error' >&2\nexit 2")
	dir := t.TempDir()
	src := filepath.Join(dir, "bad.glsl")
	_ = os.WriteFile(src, []byte("nope"), 0o644)

	err := shaderWith(compiler, "").Import(context.Background(), src, filepath.Join(dir, "bad.glsl"))
	if err == nil {
		t.Fatal("expected compile error")
	}
	if !bytes.Contains([]byte(err.Error()), []byte("syntax error")) {
		t.Errorf("error should carry compiler output: %v", err)
	}
}

func TestShader_MissingCompiler(t *testing.T) {
	s := shaderWith(filepath.Join(t.TempDir(), "does-not-exist"), "")
	err := s.Import(context.Background(), "a.glsl", "b.glsl")
	if !errors.Is(err, apperr.ErrToolNotFound) {
		t.Errorf("err = %v, want ErrToolNotFound", err)
	}
}

func TestLocateCompiler_VulkanSDK(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix layout")
	}
	sdk := t.TempDir()
	bin := filepath.Join(sdk, "bin", glslangValidator)
	_ = os.MkdirAll(filepath.Dir(bin), 0o755)
	_ = os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755)

	t.Setenv("PATH", "")
	t.Setenv("VULKAN_SDK", sdk)
	if got := locateCompiler(""); got != bin {
		t.Errorf("locateCompiler = %q, want %q", got, bin)
	}
}

func TestMeshEncode_Layout(t *testing.T) {
	m := &Mesh{SubMeshes: []SubMesh{{
		MaterialIndex: 2,
		Vertices: []MeshVertex{
			{Position: [3]float32{1, 2, 3}, Normal: [3]float32{0, 1, 0}, UV: [2]float32{0.5, 0.25}},
			{Position: [3]float32{4, 5, 6}},
			{Position: [3]float32{7, 8, 9}},
		},
		Indices: []uint16{0, 1, 2},
	}}}

	var buf bytes.Buffer
	if err := m.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	data := buf.Bytes()

	wantLen := 4 + 4 + 12 + 3*32 + 3*2
	if len(data) != wantLen {
		t.Fatalf("len = %d, want %d", len(data), wantLen)
	}
	if string(data[:4]) != "PAWS" {
		t.Errorf("magic bytes = %q, want PAWS", data[:4])
	}
	le := binary.LittleEndian
	if n := le.Uint32(data[4:]); n != 1 {
		t.Errorf("submesh count = %d", n)
	}
	if v, i, mat := le.Uint32(data[8:]), le.Uint32(data[12:]), le.Uint32(data[16:]); v != 3 || i != 3 || mat != 2 {
		t.Errorf("submesh header = %d %d %d", v, i, mat)
	}
	if idx := le.Uint16(data[wantLen-2:]); idx != 2 {
		t.Errorf("last index = %d", idx)
	}

	back, err := DecodeMesh(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("DecodeMesh: %v", err)
	}
	if back.SubMeshes[0].Vertices[0] != m.SubMeshes[0].Vertices[0] {
		t.Errorf("vertex = %+v", back.SubMeshes[0].Vertices[0])
	}
}

func TestDecodeMesh_BadMagic(t *testing.T) {
	if _, err := DecodeMesh(bytes.NewReader([]byte("NOPE\x00\x00\x00\x00"))); err == nil {
		t.Error("expected bad magic error")
	}
}

func TestMesh_InvalidSourceFails(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "broken.glb")
	_ = os.WriteFile(src, []byte("definitely not gltf"), 0o644)

	set := settings.Default()
	set.ProcessorSettings[SettingMeshExtension] = ".pmesh"
	m := NewMesh(set, quietLogger())

	if err := m.Import(context.Background(), src, filepath.Join(dir, "out", "broken.glb")); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "broken.pmesh")); err == nil {
		t.Error("no output expected for a failed import")
	}
}

func TestClaims(t *testing.T) {
	for _, h := range Builtin(settings.Default(), quietLogger()) {
		if len(h.Claims()) == 0 {
			t.Errorf("%s claims nothing", h.Name())
		}
		for _, c := range h.Claims() {
			if c.Extension != handler.Wildcard && c.Extension[0] != '.' {
				t.Errorf("%s claims %q without a leading dot", h.Name(), c.Extension)
			}
		}
	}
}

func TestTriangulate(t *testing.T) {
	tests := []struct {
		name    string
		mode    gltf.PrimitiveMode
		indices []uint32
		want    []uint16
	}{
		{"list", gltf.PrimitiveTriangles, []uint32{0, 1, 2, 2, 1, 3}, []uint16{0, 1, 2, 2, 1, 3}},
		{"strip", gltf.PrimitiveTriangleStrip, []uint32{0, 1, 2, 3}, []uint16{0, 1, 2, 2, 1, 3}},
		{"strip of five", gltf.PrimitiveTriangleStrip, []uint32{0, 1, 2, 3, 4}, []uint16{0, 1, 2, 2, 1, 3, 2, 3, 4}},
		{"fan", gltf.PrimitiveTriangleFan, []uint32{0, 1, 2, 3}, []uint16{0, 1, 2, 0, 2, 3}},
		{"short strip", gltf.PrimitiveTriangleStrip, []uint32{0, 1}, []uint16{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := triangulate(tt.mode, tt.indices, 5)
			if err != nil {
				t.Fatalf("triangulate: %v", err)
			}
			if len(got)%3 != 0 || !slices.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTriangulate_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		mode    gltf.PrimitiveMode
		indices []uint32
	}{
		{"points", gltf.PrimitivePoints, []uint32{0, 1, 2}},
		{"lines", gltf.PrimitiveLines, []uint32{0, 1, 2, 3}},
		{"line strip", gltf.PrimitiveLineStrip, []uint32{0, 1, 2}},
		{"line loop", gltf.PrimitiveLineLoop, []uint32{0, 1, 2}},
		{"partial triangle", gltf.PrimitiveTriangles, []uint32{0, 1, 2, 3}},
		{"index out of range", gltf.PrimitiveTriangles, []uint32{0, 1, 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := triangulate(tt.mode, tt.indices, 4); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestConvertPrimitive_RejectsNonTriangleModes(t *testing.T) {
	for _, mode := range []gltf.PrimitiveMode{gltf.PrimitivePoints, gltf.PrimitiveLines, gltf.PrimitiveLineStrip} {
		_, err := convertPrimitive(&gltf.Document{}, &gltf.Primitive{Mode: mode})
		if err == nil || !strings.Contains(err.Error(), "not a triangle mode") {
			t.Errorf("mode %d: err = %v", mode, err)
		}
	}
}
