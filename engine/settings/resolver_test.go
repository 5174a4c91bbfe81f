package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPaths = Paths{
	User:   "/home/tester/.taskbridge/settings.cfg",
	System: "/var/lib/taskbridge/settings.cfg",
}

func newMemResolver(t *testing.T) (*Resolver, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	return NewResolver(testPaths, WithFs(fsys)), fsys
}

func TestResolver_Property(t *testing.T) {
	t.Run("Should prefer the user tier over the system tier", func(t *testing.T) {
		r, _ := newMemResolver(t)
		require.NoError(t, r.SetProperty("engine", "/opt/system/engine", TierSystem))
		require.NoError(t, r.SetProperty("engine", "/home/tester/engine", TierUser))

		value, err := r.Property("engine")

		require.NoError(t, err)
		assert.Equal(t, "/home/tester/engine", value)
	})

	t.Run("Should fall back to the system tier", func(t *testing.T) {
		r, _ := newMemResolver(t)
		require.NoError(t, r.SetProperty("engine", "/opt/system/engine", TierSystem))

		value, err := r.Property("engine")

		require.NoError(t, err)
		assert.Equal(t, "/opt/system/engine", value)
	})

	t.Run("Should report missing after removing a system-only property", func(t *testing.T) {
		r, _ := newMemResolver(t)
		require.NoError(t, r.SetProperty("engine", "/opt/system/engine", TierSystem))
		require.NoError(t, r.RemoveProperty("engine", TierSystem))

		_, err := r.Property("engine")

		require.ErrorIs(t, err, ErrConfigMissing)
		var missing *MissingError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "engine", missing.Key)
		assert.Equal(t, PropertiesSection, missing.Section)
	})

	t.Run("Should fail with missing when no tier file exists", func(t *testing.T) {
		r, _ := newMemResolver(t)

		_, err := r.Property("engine-args")

		assert.ErrorIs(t, err, ErrConfigMissing)
	})

	t.Run("Should round-trip values exactly", func(t *testing.T) {
		values := []string{
			`C:\Program Files\Engine\bin\taskengine.exe`,
			"--compile # not a comment",
			"a;b;c",
			"",
			"ÜnïcødÉ",
			`"C:\Program Files\engine.exe"`,
			`"quoted"`,
			`'single'`,
			"`ticked`",
			"two\nlines",
			`C:\engine\`,
		}
		for _, value := range values {
			r, _ := newMemResolver(t)
			require.NoError(t, r.SetProperty("engine-args", value, TierUser))

			got, err := r.Property("engine-args")

			require.NoError(t, err)
			assert.Equal(t, value, got)
		}
	})

	t.Run("Should reject values that would not read back unchanged", func(t *testing.T) {
		values := []string{`"""`, `"""x"""`, "  padded  "}
		for _, value := range values {
			r, fsys := newMemResolver(t)
			require.NoError(t, r.SetProperty("engine", "/opt/engine", TierUser))
			before, err := afero.ReadFile(fsys, testPaths.User)
			require.NoError(t, err)

			err = r.SetProperty("engine-args", value, TierUser)

			var storeErr *StoreError
			require.ErrorAs(t, err, &storeErr, "value %q", value)
			assert.Equal(t, "verify", storeErr.Operation)
			assert.ErrorIs(t, err, ErrUnrepresentable)
			after, err := afero.ReadFile(fsys, testPaths.User)
			require.NoError(t, err)
			assert.Equal(t, string(before), string(after))
			engine, err := r.Property("engine")
			require.NoError(t, err, "tier must stay readable after %q", value)
			assert.Equal(t, "/opt/engine", engine)
		}
	})

	t.Run("Should reject keys the file would read back as comments", func(t *testing.T) {
		r, _ := newMemResolver(t)

		assert.Error(t, r.SetProperty("#engine", "v", TierUser))
		assert.Error(t, r.SetProperty(";engine", "v", TierUser))
		assert.Error(t, r.SetEnvironment("#PATH", "v", TierUser))

		props, err := r.Properties(TierUser)
		require.NoError(t, err)
		assert.Empty(t, props)
	})

	t.Run("Should preserve key case", func(t *testing.T) {
		r, _ := newMemResolver(t)
		require.NoError(t, r.SetProperty("Engine-Args", "upper", TierUser))

		_, err := r.Property("engine-args")
		assert.ErrorIs(t, err, ErrConfigMissing)
		value, err := r.Property("Engine-Args")
		require.NoError(t, err)
		assert.Equal(t, "upper", value)
	})

	t.Run("Should report optional properties as absent instead of failing", func(t *testing.T) {
		r, _ := newMemResolver(t)

		value, ok, err := r.OptionalProperty("engine-args")

		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, value)
	})
}

func TestResolver_RemoveProperty(t *testing.T) {
	t.Run("Should fail when the key is absent from the targeted tier", func(t *testing.T) {
		r, _ := newMemResolver(t)
		require.NoError(t, r.SetProperty("engine", "/opt/system/engine", TierSystem))

		err := r.RemoveProperty("engine", TierUser)

		require.ErrorIs(t, err, ErrConfigMissing)
		var missing *MissingError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, TierUser, missing.Tier)
		value, err := r.Property("engine")
		require.NoError(t, err)
		assert.Equal(t, "/opt/system/engine", value)
	})

	t.Run("Should leave the other tier untouched", func(t *testing.T) {
		r, _ := newMemResolver(t)
		require.NoError(t, r.SetProperty("engine", "/opt/system/engine", TierSystem))
		require.NoError(t, r.SetProperty("engine", "/home/tester/engine", TierUser))

		require.NoError(t, r.RemoveProperty("engine", TierUser))

		value, err := r.Property("engine")
		require.NoError(t, err)
		assert.Equal(t, "/opt/system/engine", value)
	})
}

func TestResolver_EnvironmentOverlay(t *testing.T) {
	t.Run("Should return an empty map when nothing is configured", func(t *testing.T) {
		r, _ := newMemResolver(t)

		overlay, err := r.EnvironmentOverlay()

		require.NoError(t, err)
		require.NotNil(t, overlay)
		assert.Empty(t, overlay)
	})

	t.Run("Should union entries from both tiers", func(t *testing.T) {
		r, _ := newMemResolver(t)
		require.NoError(t, r.SetEnvironment("A", "1", TierSystem))
		require.NoError(t, r.SetEnvironment("B", "2", TierUser))

		overlay, err := r.EnvironmentOverlay()

		require.NoError(t, err)
		assert.Equal(t, map[string]string{"A": "1", "B": "2"}, overlay)
	})

	t.Run("Should let user entries win on collision", func(t *testing.T) {
		r, _ := newMemResolver(t)
		require.NoError(t, r.SetEnvironment("A", "1", TierSystem))
		require.NoError(t, r.SetEnvironment("A", "2", TierUser))

		overlay, err := r.EnvironmentOverlay()

		require.NoError(t, err)
		assert.Equal(t, map[string]string{"A": "2"}, overlay)
	})

	t.Run("Should write several entries at once and remove them per tier", func(t *testing.T) {
		r, _ := newMemResolver(t)
		require.NoError(t, r.SetEnvironmentEntries(map[string]string{
			"IDL_PATH":  "+/opt/idl/lib",
			"IDL_DLM":   "/opt/idl/dlm",
			"Mixed_Key": "x",
		}, TierUser))

		require.NoError(t, r.RemoveEnvironment("IDL_DLM", TierUser))
		err := r.RemoveEnvironment("IDL_DLM", TierUser)

		require.ErrorIs(t, err, ErrConfigMissing)
		entries, err := r.Environment(TierUser)
		require.NoError(t, err)
		assert.Equal(t, []Entry{
			{Key: "IDL_PATH", Value: "+/opt/idl/lib"},
			{Key: "Mixed_Key", Value: "x"},
		}, entries)
	})

	t.Run("Should reject invalid variable names", func(t *testing.T) {
		r, _ := newMemResolver(t)

		assert.Error(t, r.SetEnvironment("A=B", "1", TierUser))
		assert.Error(t, r.SetEnvironment(" ", "1", TierUser))
	})
}

func TestResolver_FileFormat(t *testing.T) {
	t.Run("Should keep unrelated entries in place when rewriting", func(t *testing.T) {
		r, fsys := newMemResolver(t)
		existing := "[taskbridge]\nzeta = 1\nAlpha = two\nengine = /old/engine\n\n" +
			"[engine-environment]\nIDL_PATH = +/opt/idl\n"
		require.NoError(t, afero.WriteFile(fsys, testPaths.User, []byte(existing), 0o644))

		require.NoError(t, r.SetProperty("engine", "/new/engine", TierUser))
		require.NoError(t, r.SetProperty("engine-args", "--compile", TierUser))

		props, err := r.Properties(TierUser)
		require.NoError(t, err)
		assert.Equal(t, []Entry{
			{Key: "zeta", Value: "1"},
			{Key: "Alpha", Value: "two"},
			{Key: "engine", Value: "/new/engine"},
			{Key: "engine-args", Value: "--compile"},
		}, props)
		env, err := r.Environment(TierUser)
		require.NoError(t, err)
		assert.Equal(t, []Entry{{Key: "IDL_PATH", Value: "+/opt/idl"}}, env)
	})

	t.Run("Should create the directory, file and sections on first write", func(t *testing.T) {
		r, fsys := newMemResolver(t)

		require.NoError(t, r.SetEnvironment("LICENSE_SERVER", "1700@host", TierSystem))

		data, err := afero.ReadFile(fsys, testPaths.System)
		require.NoError(t, err)
		assert.Contains(t, string(data), "[engine-environment]")
		assert.Contains(t, string(data), "LICENSE_SERVER")
		infos, err := afero.ReadDir(fsys, filepath.Dir(testPaths.System))
		require.NoError(t, err)
		require.Len(t, infos, 1, "temporary files must not linger")
		assert.Equal(t, "settings.cfg", infos[0].Name())
	})

	t.Run("Should surface parse errors for corrupt files", func(t *testing.T) {
		r, fsys := newMemResolver(t)
		require.NoError(t, afero.WriteFile(fsys, testPaths.System, []byte("[broken\nkey"), 0o644))

		_, err := r.Property("engine")

		var storeErr *StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, "parse", storeErr.Operation)
		assert.NotErrorIs(t, err, ErrConfigMissing)
	})

	t.Run("Should not touch the existing file when writing fails", func(t *testing.T) {
		base := afero.NewMemMapFs()
		original := "[taskbridge]\nengine = /keep/me\n"
		require.NoError(t, afero.WriteFile(base, testPaths.User, []byte(original), 0o644))
		r := NewResolver(testPaths, WithFs(afero.NewReadOnlyFs(base)))

		err := r.SetProperty("engine", "/replace", TierUser)

		var storeErr *StoreError
		require.ErrorAs(t, err, &storeErr)
		data, readErr := afero.ReadFile(base, testPaths.User)
		require.NoError(t, readErr)
		assert.Equal(t, original, string(data))
	})
}

func TestResolver_OSFilesystem(t *testing.T) {
	t.Run("Should write atomically under a file lock", func(t *testing.T) {
		dir := t.TempDir()
		paths := Paths{
			User:   filepath.Join(dir, "user", "settings.cfg"),
			System: filepath.Join(dir, "system", "settings.cfg"),
		}
		r := NewResolver(paths)

		require.NoError(t, r.SetProperty("engine", "/opt/engine", TierUser))
		require.NoError(t, r.SetEnvironment("A", "1", TierSystem))

		value, err := r.Property("engine")
		require.NoError(t, err)
		assert.Equal(t, "/opt/engine", value)
		_, err = os.Stat(paths.User)
		require.NoError(t, err)
		matches, err := filepath.Glob(filepath.Join(dir, "user", "*.tmp"))
		require.NoError(t, err)
		assert.Empty(t, matches)
		assert.Equal(t, paths, r.Paths())
	})

	t.Run("Should see edits made through another resolver", func(t *testing.T) {
		dir := t.TempDir()
		paths := Paths{
			User:   filepath.Join(dir, "user.cfg"),
			System: filepath.Join(dir, "system.cfg"),
		}
		reader := NewResolver(paths)
		writer := NewResolver(paths)

		require.NoError(t, writer.SetEnvironment("B", "2", TierUser))
		overlay, err := reader.EnvironmentOverlay()
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"B": "2"}, overlay)

		require.NoError(t, writer.SetEnvironment("B", "3", TierUser))
		overlay, err = reader.EnvironmentOverlay()
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"B": "3"}, overlay)
	})
}

func TestPaths(t *testing.T) {
	t.Run("Should compute both tier files under the application directory", func(t *testing.T) {
		paths, err := DefaultPaths()

		require.NoError(t, err)
		assert.Equal(t, "settings.cfg", filepath.Base(paths.User))
		assert.Equal(t, "settings.cfg", filepath.Base(paths.System))
		assert.Contains(t, paths.User, "taskbridge")
		assert.Contains(t, paths.System, "taskbridge")
		assert.NotEqual(t, paths.User, paths.System)
	})

	t.Run("Should apply only non-empty overrides", func(t *testing.T) {
		paths := testPaths.WithOverrides("", "/etc/taskbridge/settings.cfg")

		assert.Equal(t, testPaths.User, paths.User)
		assert.Equal(t, filepath.Clean("/etc/taskbridge/settings.cfg"), paths.System)
		assert.Equal(t, paths.System, paths.For(TierSystem))
		assert.Equal(t, paths.User, paths.For(TierUser))
	})

	t.Run("Should map the system flag to a tier", func(t *testing.T) {
		assert.Equal(t, TierSystem, TierFor(true))
		assert.Equal(t, TierUser, TierFor(false))
	})
}
