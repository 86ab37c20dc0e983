package gitsource

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalPath(t *testing.T) {
	testCases := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{name: "https", url: "https://github.com/acme/bank.git", want: filepath.Join("repos", "github.com", "acme", "bank")},
		{name: "https without suffix", url: "https://gitlab.com/acme/bank", want: filepath.Join("repos", "gitlab.com", "acme", "bank")},
		{name: "ssh", url: "git@github.com:acme/bank.git", want: filepath.Join("repos", "github.com", "acme", "bank")},
		{name: "garbage", url: "not a url", wantErr: true},
		{name: "escape", url: "https://github.com/../../etc", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := LocalPath("repos", tc.url)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("https://github.com/acme/bank.git"))
	assert.True(t, IsRemote("git@github.com:acme/bank.git"))
	assert.False(t, IsRemote("/home/me/notes"))
	assert.False(t, IsRemote("./banks"))
}

func TestSyncClonesThenPulls(t *testing.T) {
	// Local-path clones run git-upload-pack.
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	origin := t.TempDir()
	repo, err := git.PlainInit(origin, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	commit := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(origin, name), []byte(body), 0o644))
		_, err := wt.Add(name)
		require.NoError(t, err)
		_, err = wt.Commit("add "+name, &git.CommitOptions{
			Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
		})
		require.NoError(t, err)
	}
	commit("bank.md", "S: Art\nT: Dance\nQ: one\n")

	ctx := context.Background()
	local := filepath.Join(t.TempDir(), "checkout", "bank")
	require.NoError(t, Sync(ctx, origin, local))
	assert.FileExists(t, filepath.Join(local, "bank.md"))

	commit("more.md", "S: Art\nT: Music\nQ: two\n")
	require.NoError(t, Sync(ctx, origin, local))
	assert.FileExists(t, filepath.Join(local, "more.md"))

	// Already up to date is not an error.
	require.NoError(t, Sync(ctx, origin, local))
}
