package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// LoadError represents a failure to load a profile directory as a whole,
// as opposed to a CompileError in one entry.
type LoadError struct {
	Dir     string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading profiles from %s: %s", e.Dir, e.Message)
}

// LoadDir loads every threshold profile declared under "profiles" in the CUE
// files of dir. Fails on the first malformed entry. Profiles are returned
// sorted by vaccine type so registration order is stable across runs.
func LoadDir(dir string) ([]Profile, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Dir: dir, Message: "directory not found"}
	}
	if err != nil {
		return nil, &LoadError{Dir: dir, Message: err.Error()}
	}
	if !info.IsDir() {
		return nil, &LoadError{Dir: dir, Message: "not a directory"}
	}

	cueFiles, err := findCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Dir: dir, Message: fmt.Sprintf("scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return nil, &LoadError{Dir: dir, Message: "no CUE files found"}
	}

	ctx := cuecontext.New()
	cfg := &load.Config{Dir: dir}
	instances := load.Instances([]string{"."}, cfg)
	if len(instances) == 0 {
		return nil, &LoadError{Dir: dir, Message: "no CUE instances loaded"}
	}

	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Dir: dir, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Dir: dir, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	profilesVal := value.LookupPath(cue.ParsePath("profiles"))
	if !profilesVal.Exists() {
		return nil, &LoadError{Dir: dir, Message: `no "profiles" struct found`}
	}

	iter, err := profilesVal.Fields()
	if err != nil {
		return nil, &LoadError{Dir: dir, Message: fmt.Sprintf("iterating profiles: %v", err)}
	}

	var profiles []Profile
	for iter.Next() {
		p, err := CompileProfile(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}

	if len(profiles) == 0 {
		return nil, &LoadError{Dir: dir, Message: `"profiles" struct is empty`}
	}

	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].VaccineType < profiles[j].VaccineType
	})
	return profiles, nil
}

func findCUEFiles(dir string) ([]string, error) {
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
