package ensemble

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	schemaFile = "schema.json"
	dirPerm    = 0o700
)

//go:embed schema.json
var Schema string

//ValidateSchema checks a persisted ensemble against the embedded JSON schema.
func ValidateSchema(data []byte) error {
	sch, err := jsonschema.CompileString(schemaFile, Schema)
	if err != nil {
		return fmt.Errorf("compile ensemble json schema: %w", err)
	}
	var v any
	if err = json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal ensemble data: %w", err)
	}
	if err = sch.Validate(v); err != nil {
		return fmt.Errorf("validate ensemble data: %w", err)
	}
	return nil
}

//Save writes the ensemble to a temporary file next to path and renames it to path.
func (e *Ensemble) Save(fs afero.Fs, path string) error {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ensemble: %w", err)
	}
	if err := fs.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return fmt.Errorf("create dst dir %v: %w", filepath.Dir(path), err)
	}
	tmpf, err := afero.TempFile(fs, filepath.Dir(path), filepath.Base(path))
	if err != nil {
		return fmt.Errorf("%w: create tmp file", err)
	}
	defer tmpf.Close()
	if _, err := tmpf.Write(data); err != nil {
		return fmt.Errorf("%w: write tmp file", err)
	}
	if err := tmpf.Sync(); err != nil {
		return fmt.Errorf("%w: sync tmp file", err)
	}
	if err := tmpf.Close(); err != nil {
		return fmt.Errorf("%w: close tmp file", err)
	}
	if err := fs.Rename(tmpf.Name(), path); err != nil {
		return fmt.Errorf("%w: rename tmp file %v to %v", err, tmpf.Name(), path)
	}
	e.log().Info("ensemble saved", zap.String("path", path), zap.Int("trees", len(e.Trees)))
	return nil
}

//Load reads an ensemble written by Save.
func Load(fs afero.Fs, path string, logger *zap.Logger) (*Ensemble, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read ensemble %v: %w", path, err)
	}
	if err := ValidateSchema(data); err != nil {
		return nil, fmt.Errorf("load ensemble %v: %w", path, err)
	}
	var e Ensemble
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("load ensemble %v: %w", path, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	e.SetLogger(logger)
	return &e, nil
}
