package processors

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/starford/assetcook/internal/apperr"
	"github.com/starford/assetcook/internal/handler"
	"github.com/starford/assetcook/internal/logfields"
	"github.com/starford/assetcook/internal/settings"
)

// Processor setting keys read by Shader.
const (
	SettingCompiledShaderExtension = "CompiledShaderExtension"
	SettingShaderCompilerPath      = "ShaderCompilerPath"
)

const (
	defaultShaderExtension = ".spv"
	glslangValidator       = "glslangValidator"
)

// Shader compiles GLSL/HLSL sources to SPIR-V with glslangValidator.
//
// The compiler runs synchronously with no timeout of its own; it is only
// interrupted when ctx is cancelled.
type Shader struct {
	compiler string
	outExt   string
	logger   *slog.Logger
}

var _ handler.Handler = (*Shader)(nil)

// NewShader resolves the compiler once. A missing compiler is not fatal:
// every import then fails with apperr.ErrToolNotFound, so the files are
// retried on the next run.
func NewShader(set *settings.Settings, logger *slog.Logger) *Shader {
	s := &Shader{
		compiler: locateCompiler(set.ProcessorSetting(SettingShaderCompilerPath, "")),
		outExt:   set.ProcessorSetting(SettingCompiledShaderExtension, defaultShaderExtension),
		logger:   logger,
	}
	if s.compiler == "" {
		logger.Error("shader: glslangValidator not found in PATH and VULKAN_SDK is not set or has no binary")
	} else {
		logger.Debug("shader: using compiler", slog.String("compiler", s.compiler))
	}
	return s
}

// locateCompiler checks, in order, an explicit path, PATH, and $VULKAN_SDK/bin.
func locateCompiler(explicit string) string {
	if explicit != "" {
		if isFile(explicit) {
			return explicit
		}
		return ""
	}
	if p, err := exec.LookPath(glslangValidator); err == nil {
		return p
	}
	sdk := os.Getenv("VULKAN_SDK")
	if sdk == "" {
		return ""
	}
	name := glslangValidator
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	p := filepath.Join(sdk, "bin", name)
	if isFile(p) {
		return p
	}
	return ""
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

func (s *Shader) Name() string { return "shader" }

func (s *Shader) Claims() []handler.Claim {
	return []handler.Claim{
		{Extension: ".glsl", Priority: 1},
		{Extension: ".hlsl", Priority: 1},
		{Extension: ".comp", Priority: 1},
	}
}

// Import compiles src into dst with its extension replaced.
func (s *Shader) Import(ctx context.Context, src, dst string) error {
	if s.compiler == "" {
		return fmt.Errorf("shader: %s: %w", glslangValidator, apperr.ErrToolNotFound)
	}
	out := replaceExt(dst, s.outExt)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("shader: mkdir: %w", err)
	}

	cmd := exec.CommandContext(ctx, s.compiler, "-V", src, "-o", out)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("shader: compile %s: %w: %s", src, err, strings.TrimSpace(output.String()))
	}
	s.logger.Log(ctx, logfields.LevelTrace, "shader: compiled", logfields.Path(src), logfields.Output(out))
	return nil
}

// replaceExt swaps the extension of p for ext.
func replaceExt(p, ext string) string {
	return strings.TrimSuffix(p, filepath.Ext(p)) + ext
}
