// Package catalog provides disk-based git access to the listings repository.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/agentmanifest/registry/internal/github"
)

// Store keeps a shallow clone of the listings repository on disk and serves
// file reads from the current HEAD.
type Store struct {
	config        Config
	repo          *git.Repository
	worktree      *git.Worktree
	currentCommit string
	mu            sync.RWMutex
	logger        *slog.Logger
}

// Config holds catalog store configuration.
type Config struct {
	RepoURL   string
	Branch    string
	LocalPath string
	Auth      *github.AppAuth
	Logger    *slog.Logger
}

// New creates a catalog store instance.
func New(cfg Config) (*Store, error) {
	if cfg.RepoURL == "" {
		return nil, errors.New("repo URL is required")
	}
	if cfg.LocalPath == "" {
		return nil, errors.New("local path is required")
	}
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Store{
		config: cfg,
		logger: cfg.Logger,
	}, nil
}

// Clone performs the initial shallow clone with a context timeout.
func (s *Store) Clone(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.config.LocalPath), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}
	// Clean clone: a stale worktree from a previous run is untrusted.
	if err := os.RemoveAll(s.config.LocalPath); err != nil {
		return fmt.Errorf("failed to clean existing directory: %w", err)
	}

	auth, err := s.getAuth(ctx)
	if err != nil {
		return fmt.Errorf("failed to get auth: %w", err)
	}

	s.logger.Info("cloning listings repository",
		"url", s.config.RepoURL,
		"branch", s.config.Branch,
		"path", s.config.LocalPath,
	)

	repo, err := git.PlainCloneContext(ctx, s.config.LocalPath, false, &git.CloneOptions{
		URL:           s.config.RepoURL,
		Auth:          auth,
		Depth:         1,
		SingleBranch:  true,
		ReferenceName: plumbing.NewBranchReferenceName(s.config.Branch),
	})
	if err != nil {
		return fmt.Errorf("clone failed: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	s.repo = repo
	s.worktree = worktree

	if err := s.updateCurrentCommit(); err != nil {
		return fmt.Errorf("failed to get current commit: %w", err)
	}

	s.logger.Info("clone completed", "commit", s.currentCommit)
	return nil
}

// Pull fetches and merges remote changes. Returns whether HEAD moved.
func (s *Store) Pull(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo == nil {
		return false, errors.New("repository not initialized")
	}

	oldCommit := s.currentCommit

	auth, err := s.getAuth(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get auth: %w", err)
	}

	err = s.worktree.PullContext(ctx, &git.PullOptions{
		RemoteName: "origin",
		Auth:       auth,
		Force:      true,
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("pull failed: %w", err)
	}

	if err := s.updateCurrentCommit(); err != nil {
		return false, fmt.Errorf("failed to update commit: %w", err)
	}

	changed := oldCommit != s.currentCommit
	if changed {
		s.logger.Info("listings repository updated",
			"old_commit", oldCommit,
			"new_commit", s.currentCommit,
		)
	}
	return changed, nil
}

// PullWithRetry attempts to pull with exponential backoff.
func (s *Store) PullWithRetry(ctx context.Context, maxRetries int) (bool, error) {
	var lastErr error
	backoff := 1 * time.Second

	for attempt := 0; attempt < maxRetries; attempt++ {
		changed, err := s.Pull(ctx)
		if err == nil {
			return changed, nil
		}

		lastErr = err
		s.logger.Warn("pull attempt failed",
			"attempt", attempt+1,
			"max_retries", maxRetries,
			"error", err,
			"next_backoff", backoff,
		)

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
			if backoff > 30*time.Second {
				backoff = 30 * time.Second
			}
		}
	}

	return false, fmt.Errorf("pull failed after %d retries: %w", maxRetries, lastErr)
}

// ReadFile reads a file from the current worktree.
func (s *Store) ReadFile(path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.repo == nil {
		return nil, errors.New("repository not initialized")
	}
	return os.ReadFile(filepath.Join(s.config.LocalPath, path))
}

// CurrentCommit returns the current HEAD commit SHA.
func (s *Store) CurrentCommit() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentCommit
}

// RepoURL returns the configured repository URL.
func (s *Store) RepoURL() string {
	return s.config.RepoURL
}

// Branch returns the configured branch.
func (s *Store) Branch() string {
	return s.config.Branch
}

func (s *Store) getAuth(ctx context.Context) (*http.BasicAuth, error) {
	token, err := s.config.Auth.Token(ctx)
	if err != nil {
		return nil, err
	}
	return &http.BasicAuth{
		Username: "x-access-token",
		Password: token,
	}, nil
}

func (s *Store) updateCurrentCommit() error {
	ref, err := s.repo.Head()
	if err != nil {
		return err
	}
	s.currentCommit = ref.Hash().String()
	return nil
}
