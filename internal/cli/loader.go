package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/afoeder/typo3cr/internal/compiler"
)

// LoadMode controls how errors are handled during schema loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the results of loading a schema directory.
type LoadResult struct {
	Model     *compiler.Result
	CUEValue  cue.Value // The raw CUE value for additional processing
	FileCount int       // Number of CUE files found
}

// LoadError represents an error that occurred during schema loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadModel loads and compiles the class schemas and node types declared in
// the CUE files of dir.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func LoadModel(dir string, mode LoadMode) (*LoadResult, []error) {
	var errs []error

	value, fileCount, loadErr := buildSchemaValue(dir)
	if loadErr != nil {
		return nil, []error{loadErr}
	}

	result := &LoadResult{
		Model:     &compiler.Result{},
		CUEValue:  value,
		FileCount: fileCount,
	}

	// Classes and node types compile one by one so that every broken
	// declaration can be reported.
	for _, section := range []string{"class", "nodetype"} {
		sectionVal := value.LookupPath(cue.ParsePath(section))
		if !sectionVal.Exists() {
			continue
		}
		iter, iterErr := sectionVal.Fields()
		if iterErr != nil {
			errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating %s: %v", section, iterErr)})
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		for iter.Next() {
			label := section + "." + iter.Selector().Unquoted()
			var compileErr error
			if section == "class" {
				c, err := compiler.CompileClass(iter.Value())
				if err == nil {
					result.Model.Classes = append(result.Model.Classes, c)
				}
				compileErr = err
			} else {
				d, err := compiler.CompileNodeType(iter.Value())
				if err == nil {
					result.Model.NodeTypes = append(result.Model.NodeTypes, d)
				}
				compileErr = err
			}
			if compileErr != nil {
				errs = append(errs, convertCompileError(compileErr, label))
				if mode == LoadModeFailFast {
					return result, errs
				}
			}
		}
	}

	if len(result.Model.Classes) == 0 && len(result.Model.NodeTypes) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no classes or node types found in schema"})
	}

	return result, errs
}

// buildSchemaValue evaluates the CUE package in dir. It returns the number of
// CUE files found below dir.
func buildSchemaValue(dir string) (cue.Value, int, *LoadError) {
	fail := func(code, format string, args ...any) (cue.Value, int, *LoadError) {
		return cue.Value{}, 0, &LoadError{Code: code, Message: fmt.Sprintf(format, args...)}
	}

	switch info, err := os.Stat(dir); {
	case os.IsNotExist(err):
		return fail(ErrCodeNotFound, "schema directory not found: %s", dir)
	case err != nil:
		return fail(ErrCodeNotFound, "error accessing schema directory: %v", err)
	case !info.IsDir():
		return fail(ErrCodeNotFound, "not a directory: %s", dir)
	}

	files, err := FindCUEFiles(dir)
	switch {
	case err != nil:
		return fail(ErrCodeScanError, "error scanning directory: %v", err)
	case len(files) == 0:
		return fail(ErrCodeNoFiles, "no CUE files found in %s", dir)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return fail(ErrCodeLoadFailed, "no CUE instances loaded")
	}
	if err := instances[0].Err; err != nil {
		return fail(ErrCodeLoadFailed, "loading CUE files: %v", err)
	}

	value := cuecontext.New().BuildInstance(instances[0])
	if err := value.Err(); err != nil {
		return fail(ErrCodeBuildFailed, "building CUE value: %v", err)
	}
	return value, len(files), nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", context, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeCUE         = "E007" // CUE evaluation error inside a declaration
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "type":
		return compiler.ErrUnsupportedType
	case "cue":
		return ErrCodeCUE
	default:
		return ErrCodeGeneric
	}
}
