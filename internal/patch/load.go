package patch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/Masterminds/semver/v3"
)

const (
	// FileName is the patch file looked up in the patch directory.
	FileName = "patches.cue"

	// EntryPoint is the field holding the patch list.
	EntryPoint = "applyPatches"

	// SupportedContract is the accepted contractVersion range.
	SupportedContract = "^1"
)

const schema = `
contractVersion?: string
patchInfo?: {...}
applyPatches?: [...#Patch]

#Patch: {
	component:  string
	construct?: string
	set?: {[string]: _}
	tags?: {[string]: string}
	reason?: string
}
`

// Load reads FileName from dir.
//
// It returns (nil, nil) when the file does not exist, and the parsed file
// together with ErrNoEntryPoint when the file has no applyPatches field.
// Every other failure is a PATCH_LOAD_FAILURE *Error.
func Load(dir string) (*File, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, loadError(path, err)
	}
	return Parse(path, data)
}

// Parse compiles patch source. path is used for positions and errors only.
func Parse(path string, data []byte) (*File, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, loadError(path, formatCUEError(err))
	}
	v = ctx.CompileString(schema, cue.Filename("patch-contract")).Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, loadError(path, formatCUEError(err))
	}

	f := &File{Path: path}
	if info := v.LookupPath(cue.ParsePath("patchInfo")); info.Exists() {
		if err := info.Decode(&f.Info); err != nil {
			return nil, loadError(path, formatCUEError(err))
		}
	}

	cv := v.LookupPath(cue.ParsePath("contractVersion"))
	if cv.Exists() {
		version, err := cv.String()
		if err != nil {
			return nil, loadError(path, formatCUEError(err))
		}
		if err := checkContract(version); err != nil {
			return nil, loadError(path, err)
		}
		f.ContractVersion = version
	}

	// A file without an entry point is inert, so it needs no contract.
	entry := v.LookupPath(cue.ParsePath(EntryPoint))
	if !entry.Exists() {
		return f, ErrNoEntryPoint
	}
	if f.ContractVersion == "" {
		return nil, loadError(path, fmt.Errorf("contractVersion is required with %s", EntryPoint))
	}

	if err := entry.Decode(&f.Patches); err != nil {
		return nil, loadError(path, formatCUEError(err))
	}
	for i, p := range f.Patches {
		if p.Component == "" {
			return nil, loadError(path, fmt.Errorf("%s[%d]: component is required", EntryPoint, i))
		}
	}
	return f, nil
}

func checkContract(version string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("contractVersion %q: %w", version, err)
	}
	c, err := semver.NewConstraint(SupportedContract)
	if err != nil {
		return err
	}
	if !c.Check(v) {
		return fmt.Errorf("contractVersion %s is not supported (want %s)", version, SupportedContract)
	}
	return nil
}

// formatCUEError keeps the first error and its position.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if pos := cueerrors.Positions(first); len(pos) > 0 && pos[0].IsValid() {
		return fmt.Errorf("%s:%d:%d: %s", pos[0].Filename(), pos[0].Line(), pos[0].Column(), first.Error())
	}
	return first
}
