package ingest

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/makeasinger/samples/internal/model"
)

// InputFromFile wraps a file on disk as a RawAudioInput
func InputFromFile(path string) (model.RawAudioInput, error) {
	st, err := os.Stat(path)
	if err != nil {
		return model.RawAudioInput{}, err
	}
	if st.IsDir() {
		return model.RawAudioInput{}, errors.New("not a file: " + path)
	}
	return model.RawAudioInput{
		Filename: filepath.Base(path),
		Size:     st.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// Enumerate lists audio files under dir whose extension is in exts, in
// lexical order. Hidden files (including "._" resource forks) are skipped.
func Enumerate(dir string, exts []string, recursive bool) ([]string, error) {
	if dir == "" {
		return nil, errors.New("empty dir")
	}
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		return nil, errors.New("not a dir: " + dir)
	}

	allowed := make(map[string]bool, len(exts))
	for _, e := range exts {
		allowed[strings.ToLower(e)] = true
	}

	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && (!recursive || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if !allowed[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// LoadDirectory enumerates dir and wraps every match as an input
func LoadDirectory(dir string, exts []string, recursive bool) ([]model.RawAudioInput, error) {
	paths, err := Enumerate(dir, exts, recursive)
	if err != nil {
		return nil, err
	}
	inputs := make([]model.RawAudioInput, 0, len(paths))
	for _, p := range paths {
		in, err := InputFromFile(p)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}
