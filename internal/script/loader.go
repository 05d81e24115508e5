// Package script loads units from Go source files interpreted with yaegi.
//
// A unit named "a.b" lives at <dir>/a/b.go and must define
//
//	func Load(s *unit.Scope) error
//
// Every execution evaluates the current source in a fresh interpreter and
// records a compiled artifact, whose modification time the source-file
// comparator checks against the source.
package script

import (
	"context"
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"graft/internal/config"
	"graft/internal/logging"
	"graft/internal/scan"
	"graft/pkg/unit"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"github.com/viant/afs"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"
)

// ErrNoEntryPoint is returned when unit source lacks a usable Load function.
var ErrNoEntryPoint = errors.New("unit source does not define func Load(*unit.Scope) error")

func init() {
	scan.RegisterComparatorFor[*Loader](scan.SourceFileComparator(afs.New()))
}

// Loader finds and executes script units.
type Loader struct {
	fs          afs.Service
	dir         string
	artifactDir string
	ext         string
	allowed     map[string]bool
}

// NewLoader creates a loader for cfg.Dir. A nil fs uses the local filesystem.
func NewLoader(cfg config.ScriptConfig, fs afs.Service) (*Loader, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("script directory not configured")
	}
	if fs == nil {
		fs = afs.New()
	}
	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolve script directory: %w", err)
	}
	cfg.Dir = dir
	artifactDir, err := filepath.Abs(cfg.ResolveArtifactDir())
	if err != nil {
		return nil, fmt.Errorf("resolve artifact directory: %w", err)
	}
	if err := os.MkdirAll(artifactDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}

	ext := cfg.Extension
	if ext == "" {
		ext = ".go"
	}
	allowed := make(map[string]bool, len(cfg.AllowedImports)+1)
	allowed[config.UnitImportPath] = true
	for _, pkg := range cfg.AllowedImports {
		allowed[pkg] = true
	}

	return &Loader{
		fs:          fs,
		dir:         dir,
		artifactDir: artifactDir,
		ext:         ext,
		allowed:     allowed,
	}, nil
}

func (l *Loader) Dir() string         { return l.dir }
func (l *Loader) ArtifactDir() string { return l.artifactDir }
func (l *Loader) Extension() string   { return l.ext }

// SourcePath maps a dotted unit name to its source file.
func (l *Loader) SourcePath(name string) string {
	return filepath.Join(l.dir, filepath.FromSlash(strings.ReplaceAll(name, ".", "/"))) + l.ext
}

// ArtifactPath is where the compiled artifact for name is written.
func (l *Loader) ArtifactPath(name string) string {
	return filepath.Join(l.artifactDir, name+artifactExt)
}

// Find implements host.Finder. Names without a source file yield nil.
func (l *Loader) Find(ctx context.Context, name string) (*unit.Unit, error) {
	src := l.SourcePath(name)
	ok, err := l.fs.Exists(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", src, err)
	}
	if !ok {
		return nil, nil
	}
	u := unit.New(name, l)
	u.SetSource(src)
	return u, nil
}

// Probe finds name without executing it and attaches any artifact left by an
// earlier run, so the unit can be checked for staleness before loading.
func (l *Loader) Probe(ctx context.Context, name string) (*unit.Unit, error) {
	u, err := l.Find(ctx, name)
	if err != nil || u == nil {
		return u, err
	}
	art := l.ArtifactPath(name)
	if ok, _ := l.fs.Exists(ctx, art); ok {
		u.SetArtifact(art)
	}
	return u, nil
}

// Discover lists the unit names present under the script directory.
func (l *Loader) Discover(ctx context.Context) ([]string, error) {
	objects, err := l.fs.List(ctx, l.dir, option.NewRecursive(true))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", l.dir, err)
	}
	root := url.Path(l.dir)
	seen := make(map[string]bool)
	var names []string
	for _, obj := range objects {
		if obj.IsDir() || path.Ext(obj.Name()) != l.ext {
			continue
		}
		rel, err := filepath.Rel(root, url.Path(obj.URL()))
		if err != nil || strings.HasPrefix(rel, "..") || strings.HasPrefix(rel, ".") {
			continue
		}
		name := strings.ReplaceAll(filepath.ToSlash(strings.TrimSuffix(rel, l.ext)), "/", ".")
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Exec implements unit.Loader.
func (l *Loader) Exec(env unit.Env, u *unit.Unit) error {
	ctx := env.Context()
	source := u.Source()
	if source == "" {
		source = l.SourcePath(u.Name)
		u.SetSource(source)
	}

	data, err := l.fs.DownloadWithURL(ctx, source)
	if err != nil {
		return fmt.Errorf("read %s: %w", source, err)
	}

	code := wrapSource(string(data))
	pkg, err := l.inspect(source, code)
	if err != nil {
		return err
	}
	load, err := compile(code, pkg)
	if err != nil {
		return fmt.Errorf("%s: %w", u.Name, err)
	}

	artifact := l.ArtifactPath(u.Name)
	if err := writeArtifact(ctx, l.fs, artifact, data, code); err != nil {
		logging.ScriptWarn("failed to write artifact for %s: %v", u.Name, err)
	} else {
		u.SetArtifact(artifact)
	}

	logging.ScriptDebug("executing %s from %s", u.Name, source)
	return load(unit.NewScope(env, u))
}

// AllowedImports returns the import whitelist, sorted.
func (l *Loader) AllowedImports() []string {
	pkgs := make([]string, 0, len(l.allowed))
	for pkg := range l.allowed {
		pkgs = append(pkgs, pkg)
	}
	sort.Strings(pkgs)
	return pkgs
}

// inspect checks imports against the whitelist and returns the package name.
func (l *Loader) inspect(filename, code string) (string, error) {
	f, err := parser.ParseFile(token.NewFileSet(), filename, code, parser.ImportsOnly)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", filename, err)
	}

	var forbidden []string
	for _, imp := range f.Imports {
		pkg, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			return "", fmt.Errorf("parse %s: bad import %s", filename, imp.Path.Value)
		}
		if !l.allowed[pkg] {
			forbidden = append(forbidden, pkg)
		}
	}
	if len(forbidden) > 0 {
		return "", fmt.Errorf("forbidden imports detected in %s: %v (allowed: %v)",
			filename, forbidden, l.AllowedImports())
	}
	return f.Name.Name, nil
}

// wrapSource adds a main package clause to source that has none.
func wrapSource(code string) string {
	if _, err := parser.ParseFile(token.NewFileSet(), "", code, parser.PackageClauseOnly); err == nil {
		return code
	}
	return "package main\n\n" + code
}

// compile evaluates code in a fresh interpreter and returns its Load.
func compile(code, pkg string) (func(*unit.Scope) error, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("failed to load stdlib: %w", err)
	}
	if err := i.Use(Symbols); err != nil {
		return nil, fmt.Errorf("failed to load unit symbols: %w", err)
	}

	if _, err := i.Eval(code); err != nil {
		return nil, fmt.Errorf("code evaluation failed: %w", err)
	}

	v, err := i.Eval(pkg + ".Load")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoEntryPoint, err)
	}
	load, ok := v.Interface().(func(*unit.Scope) error)
	if !ok {
		return nil, fmt.Errorf("%w: Load has type %s", ErrNoEntryPoint, v.Type())
	}
	return load, nil
}
