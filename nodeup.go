package nodeup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/gofrs/flock"

	"github.com/nodeup/nodeup/dist"
	"github.com/nodeup/nodeup/version"
)

// InstallDecision is the outcome of the decide step; it drives whether a
// download happens and whether entry points target the global tool path or
// the local install directory.
type InstallDecision int

const (
	// Undecided is the zero value before the decide step has run.
	Undecided InstallDecision = iota
	// UseExistingGlobal reuses the runtime already on the search path.
	UseExistingGlobal
	// UseExistingLocal reuses a satisfying install in the local directory.
	UseExistingLocal
	// InstallLocal downloads a fresh runtime into the local directory.
	InstallLocal
)

func (d InstallDecision) String() string {
	switch d {
	case UseExistingGlobal:
		return "use existing global"
	case UseExistingLocal:
		return "use existing local"
	case InstallLocal:
		return "install local"
	}
	return "undecided"
}

// Catalog produces the set of release versions available for installation.
type Catalog interface {
	Releases(ctx context.Context) ([]dist.Release, error)
}

// Installer provisions a node runtime satisfying a version constraint.
// One Run walks a strict linear state machine with no cycles and no
// retries: probe, decide, resolve, finalize. A failed resolve aborts
// finalization entirely.
type Installer struct {
	constraint version.Constraint

	dir        string
	binDir     string
	mirror     string
	forceLocal bool

	platform dist.Platform
	catalog  Catalog
	locator  *dist.Locator

	// seams for tests; default to the real implementations
	probeFn func(ctx context.Context, name string) (installation, bool)
	fetchFn func(ctx context.Context, url, destination string) error

	flk *flock.Flock

	// state accumulated across one run
	global   installation
	globalOK bool
	npm      installation
	npmOK    bool
	local    installation
	localOK  bool
	decision InstallDecision
	resolved string
}

// New constructs an installer for a constraint expression.
// An empty expression means any version is acceptable.
func New(constraint string, opts ...Option) (*Installer, error) {
	expr := strings.TrimSpace(constraint)
	if expr == "" {
		expr = "*"
	}

	parsed, err := version.ParseConstraint(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid constraint %q: %w", constraint, err)
	}

	inst := Installer{
		constraint: parsed,
		dir:        filepath.FromSlash("./.nodeup"),
		binDir:     filepath.FromSlash("./bin"),
		platform:   dist.Detect(),
		probeFn:    probeGlobal,
		fetchFn:    download,
	}

	for _, opt := range opts {
		opt(&inst)
	}

	if inst.catalog == nil {
		inst.catalog = dist.NewClient(dist.WithBaseURL(inst.mirror))
	}
	inst.locator = dist.NewLocator(dist.WithMirror(inst.mirror))

	return &inst, nil
}

// Decision returns the outcome of the last run's decide/resolve steps.
func (i *Installer) Decision() InstallDecision {
	return i.decision
}

// Resolved returns the version the last run settled on.
func (i *Installer) Resolved() string {
	return i.resolved
}

// Run executes one install run. Steps run strictly in order and the first
// failure aborts the remainder; every error is fatal for the run and
// surfaced verbatim.
func (i *Installer) Run(ctx context.Context) (err error) {
	start := time.Now()
	defer i.unlock()
	defer func() {
		elapsed := time.Since(start).Round(time.Millisecond)
		if err != nil {
			color.Red(" ✘ failed after %s", elapsed)
			return
		}
		color.Green(" ✔ all good after %s", elapsed)
	}()

	steps := []func(ctx context.Context) error{
		i.probe,
		i.decide,
		i.resolve,
		i.finalize,
	}

	for _, step := range steps {
		if err = step(ctx); err != nil {
			return err
		}
	}

	return nil
}

// probe queries host state: the global runtime and its companion package
// manager on the search path, and whatever lives in the local install
// directory. Probing never fails; absence is a regular outcome.
func (i *Installer) probe(ctx context.Context) error {
	logstep(fmt.Sprintf("probing for node matching %q", i.constraint))

	i.global, i.globalOK = i.probeFn(ctx, "node")
	i.npm, i.npmOK = i.probeFn(ctx, "npm")

	localNode := i.localNodePath()
	if _, err := os.Stat(localNode); err == nil {
		if ver, ok := probeVersion(ctx, localNode); ok {
			i.local, i.localOK = installation{path: localNode, version: ver}, true
		}
	}

	if i.globalOK {
		logdetail(fmt.Sprintf("global node %s at %s", i.global.version, i.global.path))
	}
	if i.localOK {
		logdetail(fmt.Sprintf("local node %s at %s", i.local.version, i.local.path))
	}

	return nil
}

// decide picks between reusing the global runtime and installing locally.
func (i *Installer) decide(context.Context) error {
	switch {
	case i.forceLocal:
		i.decision = InstallLocal
		logdetail("local install forced by configuration")
	case !i.globalOK:
		i.decision = InstallLocal
		logdetail("no global node on the search path")
	case !i.npmOK:
		i.decision = InstallLocal
		logdetail("global node has no companion npm")
	case !i.satisfies(i.global.version):
		i.decision = InstallLocal
		logdetail(fmt.Sprintf("global node %s does not satisfy %q", i.global.version, i.constraint))
	default:
		i.decision = UseExistingGlobal
		i.resolved = i.global.version
	}

	return nil
}

// resolve settles on a concrete version for local installs and performs the
// download and extraction when the local directory does not already hold a
// satisfying runtime.
func (i *Installer) resolve(ctx context.Context) error {
	if i.decision == UseExistingGlobal {
		logdetail(fmt.Sprintf("using global node %s", i.global.version))
		return nil
	}

	if i.localOK && i.satisfies(i.local.version) {
		i.decision = UseExistingLocal
		i.resolved = i.local.version
		logdetail(fmt.Sprintf("local node %s already satisfies %q", i.local.version, i.constraint))
		return nil
	}

	if err := i.lockDir(); err != nil {
		return err
	}

	releases, err := i.catalog.Releases(ctx)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrTransferFailure, err)
	}

	candidates := make([]string, 0, len(releases))
	for _, rel := range releases {
		candidates = append(candidates, rel.Version)
	}

	best, ok := version.BestMatch(i.constraint, candidates)
	if !ok {
		return fmt.Errorf("%w %q among %d releases", ErrNoMatchingVersion, i.constraint.String(), len(candidates))
	}
	i.resolved = best
	logdetail(fmt.Sprintf("resolved %q to node %s", i.constraint, best))

	location, err := i.locator.Locate(best, i.platform)
	if err != nil {
		return err
	}

	return i.install(ctx, location)
}

// install places the artifact into the local directory according to its
// archive kind.
func (i *Installer) install(ctx context.Context, location dist.ArtifactLocation) error {
	logstep(fmt.Sprintf("installing node %s into %s", i.resolved, i.dir))

	if location.Kind == dist.RawExecutable {
		destination := i.localNodePath()
		if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
			return fmt.Errorf("%w: create %s: %s", ErrFilesystemFailure, filepath.Dir(destination), err)
		}
		if err := i.fetchFn(ctx, location.URL, destination); err != nil {
			return err
		}
		if err := os.Chmod(destination, 0o755); err != nil {
			return fmt.Errorf("%w: chmod %s: %s", ErrFilesystemFailure, destination, err)
		}
		i.decision = InstallLocal
		return nil
	}

	archive := filepath.Join(i.dir, filepath.Base(location.URL))
	if err := i.fetchFn(ctx, location.URL, archive); err != nil {
		return err
	}
	if err := extract(archive, i.dir, location.Kind); err != nil {
		return err
	}

	i.decision = InstallLocal
	return nil
}

// finalize writes the entry-point scripts, pointing at the global tool path
// or the local install directory depending on the decision, then exposes
// the companion tools across the same boundary.
func (i *Installer) finalize(ctx context.Context) error {
	windows := i.platform.OS == dist.Windows

	nodeTarget := i.localNodePath()
	if i.decision == UseExistingGlobal {
		nodeTarget = i.global.path
	}

	nodeAbs, err := filepath.Abs(nodeTarget)
	if err != nil {
		return fmt.Errorf("%w: resolve %s: %s", ErrFilesystemFailure, nodeTarget, err)
	}

	entries := []entryPoint{{name: "node", target: nodeAbs}}
	entries = append(entries, i.companions(ctx, nodeAbs)...)

	for _, ep := range entries {
		if err := writeEntryPoint(i.binDir, ep, windows); err != nil {
			return err
		}
	}

	logstep(fmt.Sprintf("node %s ready (%s)", i.resolved, i.decision))
	return nil
}

// companions exposes npm and npx on the same local/global boundary the
// runtime decision settled on. A missing companion is skipped, never fatal.
func (i *Installer) companions(ctx context.Context, nodeAbs string) []entryPoint {
	if i.decision == UseExistingGlobal {
		var entries []entryPoint
		entries = append(entries, entryPoint{name: "npm", target: i.npm.path})
		if npx, ok := i.probeFn(ctx, "npx"); ok {
			entries = append(entries, entryPoint{name: "npx", target: npx.path})
		}
		return entries
	}

	var entries []entryPoint
	for name, cli := range map[string]string{
		"npm": filepath.Join("npm", "bin", "npm-cli.js"),
		"npx": filepath.Join("npm", "bin", "npx-cli.js"),
	} {
		script := filepath.Join(i.dir, "lib", "node_modules", cli)
		if i.platform.OS == dist.Windows {
			script = filepath.Join(i.dir, "node_modules", cli)
		}

		abs, err := filepath.Abs(script)
		if err != nil {
			continue
		}
		if _, err := os.Stat(abs); err != nil {
			logdetail(fmt.Sprintf("bundled %s not found; skipping its entry point", name))
			continue
		}

		entries = append(entries, entryPoint{name: name, target: abs, viaNode: nodeAbs})
	}

	return entries
}

// satisfies reports whether an installed version string meets the
// constraint; unparseable reports never satisfy anything.
func (i *Installer) satisfies(installed string) bool {
	ver, err := version.Parse(installed)
	if err != nil {
		return false
	}
	return i.constraint.Match(ver)
}

// localNodePath is where the runtime binary lives inside the local install
// directory: the bare executable on windows, bin/node everywhere else.
func (i *Installer) localNodePath() string {
	if i.platform.OS == dist.Windows {
		return filepath.Join(i.dir, "node.exe")
	}
	return filepath.Join(i.dir, "bin", "node")
}

// lockDir takes an exclusive lock on the install directory for the rest of
// the run, so two concurrent runs cannot interleave extraction. The lock is
// released when Run returns.
func (i *Installer) lockDir() error {
	if i.flk != nil {
		return nil
	}

	if err := os.MkdirAll(i.dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %s", ErrFilesystemFailure, i.dir, err)
	}

	flk := flock.New(filepath.Join(i.dir, ".nodeup.lock"))
	if err := flk.Lock(); err != nil {
		return fmt.Errorf("%w: lock %s: %s", ErrFilesystemFailure, i.dir, err)
	}

	i.flk = flk
	return nil
}

func (i *Installer) unlock() {
	if i.flk != nil {
		_ = i.flk.Unlock()
		i.flk = nil
	}
}
