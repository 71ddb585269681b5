package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/hawkstract/nsc/internal/ir"
)

// Loader error codes.
const (
	ErrCodeNotFound    = "L001" // unit file or directory missing
	ErrCodeBuildFailed = "L002" // CUE compilation failed
	ErrCodeNoUnit      = "L003" // file has no top-level unit value
	ErrCodeDecode      = "L004" // unit value does not match the IR shape
	ErrCodeInvalid     = "L005" // structural validation failed
)

// LoadError represents an error that occurred during unit loading.
type LoadError struct {
	Code    string
	Path    string
	Message string
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadUnit parses one .cue unit file into the IR the checking passes
// consume. The file must define a top-level `unit` value whose shape
// mirrors ir.Unit (snake_case field names, pos as {line, column}).
//
// This is the hand-off point from the external front-end: everything
// syntactic has been resolved before the unit reaches the core, so
// loading is decode-plus-structure validation, not parsing.
func LoadUnit(path string) (*ir.Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Path: path, Message: fmt.Sprintf("reading unit file: %v", err)}
	}

	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Path: path, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	unitVal := value.LookupPath(cue.ParsePath("unit"))
	if !unitVal.Exists() {
		return nil, &LoadError{Code: ErrCodeNoUnit, Path: path, Message: "no top-level unit value"}
	}

	var unit ir.Unit
	if err := unitVal.Decode(&unit); err != nil {
		return nil, &LoadError{Code: ErrCodeDecode, Path: path, Message: fmt.Sprintf("decoding unit: %v", err)}
	}
	if unit.Name == "" {
		unit.Name = unitName(path)
	}
	if err := validateUnit(&unit); err != nil {
		return nil, &LoadError{Code: ErrCodeInvalid, Path: path, Message: err.Error()}
	}
	return &unit, nil
}

// LoadUnits loads every .cue file of a directory, sorted by filename
// for deterministic multi-unit ordering.
func LoadUnits(dir string) ([]*ir.Unit, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Path: dir, Message: fmt.Sprintf("accessing unit directory: %v", err)}
	}
	if !info.IsDir() {
		unit, err := LoadUnit(dir)
		if err != nil {
			return nil, err
		}
		return []*ir.Unit{unit}, nil
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Path: dir, Message: fmt.Sprintf("scanning directory: %v", err)}
	}
	if len(matches) == 0 {
		return nil, &LoadError{Code: ErrCodeNotFound, Path: dir, Message: "no CUE unit files found"}
	}
	sort.Strings(matches)

	units := make([]*ir.Unit, 0, len(matches))
	for _, path := range matches {
		unit, err := LoadUnit(path)
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	return units, nil
}

// validateUnit checks structure the decoder cannot: unique function
// names, resolvable entry points, and recognizable statement kinds.
// Semantic findings stay with the checking passes; this only rejects
// units a front-end should never have produced.
func validateUnit(u *ir.Unit) error {
	names := make(map[string]bool, len(u.Functions))
	for _, fn := range u.Functions {
		if fn.Name == "" {
			return fmt.Errorf("function with empty name")
		}
		if names[fn.Name] {
			return fmt.Errorf("duplicate function %q", fn.Name)
		}
		names[fn.Name] = true
		if err := validateStmts(fn.Name, fn.Body); err != nil {
			return err
		}
	}
	for _, entry := range u.EntryPoints {
		if !names[entry] {
			return fmt.Errorf("entry point %q is not a function in the unit", entry)
		}
	}
	return nil
}

func validateStmts(fn string, stmts []ir.Stmt) error {
	for _, s := range stmts {
		switch s.Kind {
		case ir.StmtDecl:
			if !ir.ValidBindingKinds[s.Binding] {
				return fmt.Errorf("function %q: invalid binding kind %q at %s", fn, s.Binding, s.Pos)
			}
		case ir.StmtAssign, ir.StmtReturn, ir.StmtExpr, ir.StmtSafe, ir.StmtIf:
		default:
			return fmt.Errorf("function %q: invalid statement kind %q at %s", fn, s.Kind, s.Pos)
		}
		if err := validateStmts(fn, s.Body); err != nil {
			return err
		}
		if err := validateStmts(fn, s.Else); err != nil {
			return err
		}
		if s.Value != nil {
			if err := validateStmts(fn, s.Value.Closure); err != nil {
				return err
			}
		}
	}
	return nil
}

func unitName(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
