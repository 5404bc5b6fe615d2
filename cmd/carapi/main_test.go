package main

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMigrator struct {
	calls   []string
	url     string
	version uint
	err     error
}

func (f *fakeMigrator) Up() error   { f.calls = append(f.calls, "up"); return f.err }
func (f *fakeMigrator) Down() error { f.calls = append(f.calls, "down"); return f.err }
func (f *fakeMigrator) Version() (uint, bool, error) {
	f.calls = append(f.calls, "version")
	return f.version, false, f.err
}
func (f *fakeMigrator) Close() error { f.calls = append(f.calls, "close"); return nil }

func useFakeMigrator(t *testing.T, f *fakeMigrator) {
	t.Helper()
	prev := newMigrator
	newMigrator = func(url string) (migrator, error) {
		f.url = url
		return f, nil
	}
	t.Cleanup(func() { newMigrator = prev })
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "absent.env")))
	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)
	for _, sub := range []string{"serve", "migrate"} {
		assert.Contains(t, out, sub, "Help missing %q command", sub)
	}
}

func TestMigrate_Up(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/cars")
	f := &fakeMigrator{}
	useFakeMigrator(t, f)

	out, err := execute(t, "migrate", "up")
	require.NoError(t, err)
	assert.Equal(t, []string{"up", "close"}, f.calls)
	assert.Equal(t, "postgres://u:p@db:5432/cars", f.url)
	assert.Contains(t, out, "Migrations completed successfully")
}

func TestMigrate_Version(t *testing.T) {
	f := &fakeMigrator{version: 1}
	useFakeMigrator(t, f)

	out, err := execute(t, "migrate", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "version=1 dirty=false")
}

func TestMigrate_DownRequiresConfirmation(t *testing.T) {
	f := &fakeMigrator{}
	useFakeMigrator(t, f)

	_, err := execute(t, "migrate", "down")
	require.Error(t, err)
	assert.Empty(t, f.calls)

	_, err = execute(t, "migrate", "down", "--yes")
	require.NoError(t, err)
	assert.Equal(t, []string{"down", "close"}, f.calls)
}

func TestMigrate_ErrorClosesMigrator(t *testing.T) {
	f := &fakeMigrator{err: errors.New("dirty database")}
	useFakeMigrator(t, f)

	_, err := execute(t, "migrate", "up")
	require.Error(t, err)
	assert.Equal(t, []string{"up", "close"}, f.calls)
}
