/*
Package contracts provides access to compiled Subscription contract artifacts:
it reads them from a file system and compiles them from contract sources.
*/
package contracts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/nspcc-dev/neo-go/cli/smartcontract"
	"github.com/nspcc-dev/neo-go/pkg/compiler"
	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
)

const (
	nefName      = "contract.nef"
	manifestName = "manifest.json"
	configName   = "config.yml"
)

// Contract groups information about Neo contract ready for deployment.
type Contract struct {
	NEF      nef.File
	Manifest manifest.Manifest
}

var (
	errInvalidNEF      = errors.New("invalid NEF")
	errInvalidManifest = errors.New("invalid manifest")
)

// Read reads contract NEF and manifest from the given directory of the file
// system.
func Read(fsys fs.FS, dir string) (Contract, error) {
	var c Contract

	// fs.FS uses "/" even on Windows, so filepath.Join() is not applicable.
	fNEF, err := fsys.Open(path.Join(dir, nefName))
	if err != nil {
		return c, fmt.Errorf("open NEF: %w", err)
	}
	defer fNEF.Close()

	fManifest, err := fsys.Open(path.Join(dir, manifestName))
	if err != nil {
		return c, fmt.Errorf("open manifest: %w", err)
	}
	defer fManifest.Close()

	bReader := io.NewBinReaderFromIO(fNEF)
	c.NEF.DecodeBinary(bReader)
	if bReader.Err != nil {
		return c, fmt.Errorf("%w: %w", errInvalidNEF, bReader.Err)
	}

	err = json.NewDecoder(fManifest).Decode(&c.Manifest)
	if err != nil {
		return c, fmt.Errorf("%w: %w", errInvalidManifest, err)
	}

	return c, nil
}

// Compile compiles contract sources from the given directory. Manifest
// options are taken from config.yml located in the same directory.
func Compile(srcDir string) (Contract, error) {
	var c Contract

	ne, di, err := compiler.CompileWithOptions(srcDir, nil, nil)
	if err != nil {
		return c, fmt.Errorf("compile %s: %w", srcDir, err)
	}

	conf, err := smartcontract.ParseContractConfig(filepath.Join(srcDir, configName))
	if err != nil {
		return c, fmt.Errorf("parse contract config: %w", err)
	}

	o := &compiler.Options{}
	o.Name = conf.Name
	o.ContractEvents = conf.Events
	o.DeclaredNamedTypes = conf.NamedTypes
	o.ContractSupportedStandards = conf.SupportedStandards
	o.Permissions = make([]manifest.Permission, len(conf.Permissions))
	for i := range conf.Permissions {
		o.Permissions[i] = manifest.Permission(conf.Permissions[i])
	}
	o.SafeMethods = conf.SafeMethods
	o.Overloads = conf.Overloads
	o.SourceURL = conf.SourceURL

	m, err := compiler.CreateManifest(di, o)
	if err != nil {
		return c, fmt.Errorf("create manifest: %w", err)
	}

	c.NEF = *ne
	c.Manifest = *m
	return c, nil
}

// Write stores contract NEF and manifest in the given directory so that Read
// can load them back.
func Write(dir string, c Contract) error {
	bNEF, err := c.NEF.Bytes()
	if err != nil {
		return fmt.Errorf("encode NEF: %w", err)
	}

	jManifest, err := json.Marshal(c.Manifest)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, nefName), bNEF, 0o644); err != nil {
		return fmt.Errorf("write NEF: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, manifestName), jManifest, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}
