package gitsource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
)

// Sync clones a git repository if it doesn't exist at the given path,
// or pulls the latest changes if it does.
func Sync(ctx context.Context, url, localPath string) error {
	_, err := os.Stat(localPath)
	switch {
	case os.IsNotExist(err):
		slog.Info("cloning repository", "url", url, "path", localPath)
		if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
			return fmt.Errorf("failed to create parent of %s: %w", localPath, err)
		}
		_, err := git.PlainCloneContext(ctx, localPath, false, &git.CloneOptions{URL: url})
		if err != nil {
			return fmt.Errorf("failed to clone repo %s: %w", url, err)
		}
		slog.Info("clone successful", "url", url)
	case err == nil:
		slog.Info("pulling latest changes", "path", localPath)
		repo, err := git.PlainOpen(localPath)
		if err != nil {
			return fmt.Errorf("failed to open existing repo at %s: %w", localPath, err)
		}

		worktree, err := repo.Worktree()
		if err != nil {
			return fmt.Errorf("failed to get worktree for repo at %s: %w", localPath, err)
		}

		err = worktree.PullContext(ctx, &git.PullOptions{RemoteName: "origin"})
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			return fmt.Errorf("failed to pull changes for repo at %s: %w", localPath, err)
		}
		slog.Info("pull successful (or already up-to-date)", "path", localPath)
	default:
		return fmt.Errorf("error checking path %s: %w", localPath, err)
	}

	return nil
}

// LocalPath maps a repository URL to a checkout directory under baseDir.
// Both https://host/owner/repo.git and git@host:owner/repo.git forms are
// accepted.
func LocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil || (parsedURL.Scheme != "https" && parsedURL.Scheme != "http") {
		if strings.Contains(repoURL, "@") {
			parts := strings.Split(repoURL, ":")
			if len(parts) == 2 {
				hostAndUser := strings.Split(parts[0], "@")
				if len(hostAndUser) == 2 && hostAndUser[1] != "" {
					host := hostAndUser[1]
					repoPath := strings.TrimSuffix(parts[1], ".git")
					return safeJoin(baseDir, host, repoPath)
				}
			}
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	sanitizedPath := strings.TrimSuffix(parsedURL.Path, ".git")
	return safeJoin(baseDir, parsedURL.Host, sanitizedPath)
}

func safeJoin(baseDir, host, repoPath string) (string, error) {
	p := filepath.Join(baseDir, host, repoPath)
	rel, err := filepath.Rel(baseDir, p)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("git URL escapes repos directory: %s/%s", host, repoPath)
	}
	return p, nil
}

// IsRemote reports whether path looks like a git URL rather than a directory.
func IsRemote(path string) bool {
	return strings.HasPrefix(path, "http://") ||
		strings.HasPrefix(path, "https://") ||
		strings.HasPrefix(path, "git@") ||
		strings.HasSuffix(path, ".git")
}
