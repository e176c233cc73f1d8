package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/filesystem"

	"github.com/fpp-125/djstarter/internal/logging"
	"github.com/fpp-125/djstarter/internal/pipeline"
	"github.com/fpp-125/djstarter/internal/templates"
)

// GitInit turns the project into a git repository with a .gitignore and,
// when Commit is set, an initial commit. Existing repositories are left
// alone.
type GitInit struct {
	Deps
	Commit      bool
	AuthorName  string
	AuthorEmail string
}

func (*GitInit) Name() string { return NameGitInit }

func (s *GitInit) Execute(ctx context.Context, bc *pipeline.Context) error {
	p, err := s.project(bc)
	if err != nil {
		return err
	}
	if s.exists(p.path(".git")) {
		s.out().Infof("git repository already present, skipping")
		return nil
	}
	data := templates.Data{Project: p.name, Apps: bc.StringsOr(pipeline.KeyAppNames)}
	if err := s.renderIfAbsent(p.path(".gitignore"), templates.GitIgnore, data); err != nil {
		return err
	}

	worktree, err := s.FS.Chroot(p.rel)
	if err != nil {
		return fmt.Errorf("open %s: %w", p.rel, err)
	}
	dot, err := worktree.Chroot(git.GitDirName)
	if err != nil {
		return fmt.Errorf("open %s/.git: %w", p.rel, err)
	}
	repo, err := git.Init(filesystem.NewStorage(dot, cache.NewObjectLRUDefault()), worktree)
	if err != nil {
		return fmt.Errorf("init repository in %s: %w", p.abs, err)
	}
	if !s.Commit {
		s.out().OKf("git repository initialised")
		return nil
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return fmt.Errorf("stage files: %w", err)
	}
	hash, err := wt.Commit("Initial Django scaffold", &git.CommitOptions{
		Author: &object.Signature{
			Name:  orDefault(s.AuthorName, "djstarter"),
			Email: orDefault(s.AuthorEmail, "djstarter@localhost"),
			When:  time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("commit scaffold: %w", err)
	}
	logging.FromContext(ctx).Debug("initial commit", "hash", hash.String())
	s.out().OKf("git repository initialised at %s", hash.String()[:7])
	return nil
}
