package bundle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/deploybuilder/internal/command"
	"git.home.luguber.info/inful/deploybuilder/internal/command/commandtest"
	"git.home.luguber.info/inful/deploybuilder/internal/config"
)

func TestServerArgs(t *testing.T) {
	got := ServerArgs(ServerOptions{EntryPoint: "server/index.ts", OutDir: "api"})
	assert.Equal(t, []string{
		"server/index.ts",
		"--platform=node",
		"--packages=external",
		"--bundle",
		"--format=esm",
		"--outdir=api",
	}, got)
}

func TestClientBundler_UsesConfiguredCommand(t *testing.T) {
	rec := commandtest.NewRecorder()
	cfg := config.Default()
	root := t.TempDir()

	b := NewClientBundler(rec, cfg, root)
	require.NoError(t, b.Bundle(context.Background()))

	calls := rec.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, command.Spec{Name: "vite", Args: []string{"build"}, Dir: root}, calls[0])
}

func TestClientBundler_PropagatesFailure(t *testing.T) {
	boom := &command.ExitError{Command: "vite build", Code: 1}
	rec := commandtest.NewRecorder().FailWith("vite", boom)

	err := NewClientBundler(rec, config.Default(), t.TempDir()).Bundle(context.Background())
	require.Error(t, err)
	assert.Same(t, boom, err)
}

func TestNewServerBundler_ExecEngine(t *testing.T) {
	rec := commandtest.NewRecorder()
	cfg := config.Default()
	root := t.TempDir()

	b, err := NewServerBundler(rec, cfg, root)
	require.NoError(t, err)
	require.IsType(t, &CommandBundler{}, b)
	require.NoError(t, b.Bundle(context.Background()))

	calls := rec.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "esbuild", calls[0].Name)
	assert.Equal(t, root, calls[0].Dir)
	assert.Equal(t, ServerArgs(ServerOptions{EntryPoint: "server/index.ts", OutDir: "api"}), calls[0].Args)
}

func TestNewServerBundler_APIEngineAndUnknown(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Engine = config.EngineAPI
	root := t.TempDir()

	b, err := NewServerBundler(nil, cfg, root)
	require.NoError(t, err)
	apiBundler, ok := b.(*APIBundler)
	require.True(t, ok)

	opts := apiBundler.BuildOptions()
	assert.Equal(t, api.PlatformNode, opts.Platform)
	assert.Equal(t, api.PackagesExternal, opts.Packages)
	assert.Equal(t, api.FormatESModule, opts.Format)
	assert.True(t, opts.Bundle)
	assert.True(t, opts.Write)
	assert.Equal(t, filepath.Join(root, "api"), opts.Outdir)

	cfg.Server.Engine = "rollup"
	_, err = NewServerBundler(nil, cfg, root)
	assert.Error(t, err)
}

func TestAPIBundler_BundlesServerEntry(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "server"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "server", "routes.ts"), []byte(
		"export const health = (): string => 'ok';\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "server", "index.ts"), []byte(
		"import express from 'express';\nimport { health } from './routes';\nconst app = express();\napp.get('/api/health', (_req: unknown, res: any) => res.send(health()));\nexport default app;\n"), 0o644))

	b := NewAPIBundler(root, ServerOptions{EntryPoint: "server/index.ts", OutDir: "api"})
	b.logLevel = api.LogLevelSilent
	require.NoError(t, b.Bundle(context.Background()))

	data, err := os.ReadFile(filepath.Join(root, "api", "index.js"))
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `from "express"`, "packages must stay external")
	assert.Contains(t, out, "export", "output must be an ES module")
	assert.NotContains(t, out, "./routes", "local modules must be bundled")
}

func TestAPIBundler_ReportsErrors(t *testing.T) {
	root := t.TempDir()
	b := NewAPIBundler(root, ServerOptions{EntryPoint: "server/missing.ts", OutDir: "api"})
	b.logLevel = api.LogLevelSilent

	err := b.Bundle(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrServerBundle))
	assert.Contains(t, err.Error(), "missing.ts")
}
