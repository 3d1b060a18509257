// Package source locates template sources: templates compiled into kiln,
// local directories and git repositories.
package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/rs/zerolog"

	"github.com/cpcf/kiln/templates"
)

type Kind int

const (
	Builtin Kind = iota
	Local
	Git
)

func (k Kind) String() string {
	switch k {
	case Builtin:
		return "builtin"
	case Local:
		return "local"
	case Git:
		return "git"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Source is a resolved template source.
type Source struct {
	// Name identifies the template for replays and summaries.
	Name string
	Kind Kind
	// Location is the directory the template was read from; empty for
	// built-in templates.
	Location string
	FS       fs.FS
}

type Options struct {
	// CacheDir receives git clones, one directory per repository.
	CacheDir string
	// Checkout is a branch or tag to clone instead of the default branch.
	Checkout string
	// Directory selects a template inside the source.
	Directory string
	// Abbreviations map prefixes such as gh to URL patterns containing {0}.
	Abbreviations map[string]string
	// Logger defaults to the zero logger, which discards everything.
	Logger zerolog.Logger
}

// ExpandAbbreviation rewrites prefix:rest references using abbreviations.
// A reference that is itself a key expands to the bare pattern.
func ExpandAbbreviation(ref string, abbreviations map[string]string) string {
	if pattern, ok := abbreviations[ref]; ok {
		return pattern
	}
	prefix, rest, ok := strings.Cut(ref, ":")
	if !ok {
		return ref
	}
	pattern, ok := abbreviations[prefix]
	if !ok {
		return ref
	}
	return strings.ReplaceAll(pattern, "{0}", rest)
}

// IsRepoURL reports whether ref names a git repository rather than a
// local path.
func IsRepoURL(ref string) bool {
	for _, prefix := range []string{"git@", "git+", "https://", "http://", "ssh://", "git://", "file://"} {
		if strings.HasPrefix(ref, prefix) {
			return true
		}
	}
	return strings.HasSuffix(ref, ".git") && !isDir(ref)
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

// Resolve finds the template named by ref. Abbreviations are expanded
// first; then repository URLs are cloned, existing directories are read in
// place, and remaining names are looked up among the built-in templates.
func Resolve(ctx context.Context, ref string, opts Options) (*Source, error) {
	expanded := ExpandAbbreviation(ref, opts.Abbreviations)

	var (
		src *Source
		err error
	)
	switch {
	case IsRepoURL(expanded):
		src, err = clone(ctx, expanded, opts)
	case isDir(expanded):
		abs, absErr := filepath.Abs(expanded)
		if absErr != nil {
			return nil, absErr
		}
		src = &Source{Name: filepath.Base(abs), Kind: Local, Location: abs, FS: os.DirFS(abs)}
	default:
		fsys, ok := templates.Lookup(expanded)
		if !ok {
			return nil, fmt.Errorf("template %q: not a repository, a directory or one of the built-in templates %v", ref, templates.Names())
		}
		src = &Source{Name: expanded, Kind: Builtin, FS: fsys}
	}
	if err != nil {
		return nil, err
	}

	if opts.Directory != "" {
		dir := path.Clean(filepath.ToSlash(opts.Directory))
		if !fs.ValidPath(dir) {
			return nil, fmt.Errorf("directory %q must be a relative path inside the template", opts.Directory)
		}
		sub, err := fs.Sub(src.FS, dir)
		if err != nil {
			return nil, err
		}
		if _, err := fs.Stat(sub, "."); err != nil {
			return nil, fmt.Errorf("directory %s in %s: %w", dir, ref, err)
		}
		src.FS = sub
		src.Name = path.Base(dir)
		if src.Location != "" {
			src.Location = filepath.Join(src.Location, filepath.FromSlash(dir))
		}
	}
	return src, nil
}

// RepoName returns the last path element of a repository URL without its
// .git suffix.
func RepoName(url string) string {
	name := strings.TrimRight(url, "/")
	if i := strings.LastIndexAny(name, "/:"); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, ".git")
}

// CacheDirFor returns the directory a clone of url is kept in: the
// repository name followed by a hash of the full URL, so distinct
// repositories with the same name do not share a clone.
func CacheDirFor(cacheDir, url string) (string, error) {
	name := RepoName(strings.TrimPrefix(url, "git+"))
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("repository URL %q has no usable name", url)
	}
	sum := sha256.Sum256([]byte(url))
	dir := filepath.Join(cacheDir, name+"-"+hex.EncodeToString(sum[:6]))
	if !within(cacheDir, dir) {
		return "", fmt.Errorf("clone of %q would leave the cache directory", url)
	}
	return dir, nil
}

func within(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// clone makes a shallow clone of url next to the cached one and swaps it
// in once it succeeds. A failed clone leaves the previous clone in place.
func clone(ctx context.Context, url string, opts Options) (*Source, error) {
	if opts.CacheDir == "" {
		return nil, errors.New("no cache directory for git templates")
	}
	url = strings.TrimPrefix(url, "git+")
	dir, err := CacheDirFor(opts.CacheDir, url)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger.With().Str("url", url).Str("dir", dir).Logger()

	if err := os.MkdirAll(opts.CacheDir, 0o755); err != nil {
		return nil, err
	}
	tmp, err := os.MkdirTemp(opts.CacheDir, "."+filepath.Base(dir)+"-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmp)

	cloneOpts := &git.CloneOptions{
		URL:   url,
		Depth: 1,
	}
	if opts.Checkout != "" {
		cloneOpts.ReferenceName = plumbing.NewBranchReferenceName(opts.Checkout)
		cloneOpts.SingleBranch = true
	}

	logger.Debug().Str("checkout", opts.Checkout).Msg("cloning template")
	_, err = git.PlainCloneContext(ctx, tmp, false, cloneOpts)
	if err != nil && opts.Checkout != "" && ctx.Err() == nil {
		// Not a branch; try it as a tag.
		if err := resetDir(tmp); err != nil {
			return nil, err
		}
		cloneOpts.ReferenceName = plumbing.NewTagReferenceName(opts.Checkout)
		if _, tagErr := git.PlainCloneContext(ctx, tmp, false, cloneOpts); tagErr == nil {
			err = nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("clone %s: %w", url, err)
	}

	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("clear cached clone: %w", err)
	}
	if err := os.Rename(tmp, dir); err != nil {
		return nil, fmt.Errorf("store clone: %w", err)
	}

	return &Source{Name: RepoName(url), Kind: Git, Location: dir, FS: os.DirFS(dir)}, nil
}

// resetDir empties dir for another clone attempt.
func resetDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}
