package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Section is the top-level key capture settings live under in the file.
const Section = "capture"

// File is a settings store backed by a YAML file. Values live under the
// "capture" section so the file can be shared with other configuration.
//
// Changes made through Set stay in memory until Save. When Watch is on,
// edits made to the file by hand are picked up and reported to listeners;
// a key edited on disk replaces any unsaved value for that key.
type File struct {
	mu     sync.Mutex
	v      *viper.Viper
	fs     afero.Fs
	path   string
	values map[string]any
	disk   map[string]any
	ls     listeners
	onErr  func(error)
}

// NewFile opens the settings file at path. A missing file is not an error;
// it is created by the first Save.
func NewFile(fs afero.Fs, path string) (*File, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}

	v := viper.New()
	v.SetFs(fs)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	f := &File{v: v, fs: fs, path: path}
	if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
		return nil, fmt.Errorf("failed to read settings %s: %w", path, err)
	}
	f.disk = f.section()
	f.values = copyMap(f.disk)
	return f, nil
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}

// Path returns the settings file location.
func (f *File) Path() string {
	return f.path
}

// Get returns the value stored under key.
func (f *File) Get(key string) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[strings.ToLower(key)]
	return v, ok
}

// Set stores value under key and notifies listeners if it changed.
func (f *File) Set(key string, value any) error {
	f.mu.Lock()
	k := strings.ToLower(key)
	old, had := f.values[k]
	f.values[k] = value
	f.mu.Unlock()

	if !had || !reflect.DeepEqual(old, value) {
		f.ls.notify(key, value)
	}
	return nil
}

// Keys returns the keys present in the capture section, sorted.
func (f *File) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.values))
	for k := range f.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Save writes all values to the settings file, creating its directory.
// Other sections of the file are kept as they were last read.
func (f *File) Save() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if dir := filepath.Dir(f.path); dir != "" {
		if err := f.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create settings directory %s: %w", dir, err)
		}
	}

	all := f.v.AllSettings()
	all[Section] = copyMap(f.values)

	out := viper.New()
	out.SetFs(f.fs)
	out.SetConfigType("yaml")
	if err := out.MergeConfigMap(all); err != nil {
		return fmt.Errorf("failed to prepare settings %s: %w", f.path, err)
	}
	if err := out.WriteConfigAs(f.path); err != nil {
		return fmt.Errorf("failed to save settings %s: %w", f.path, err)
	}
	f.disk = copyMap(f.values)
	return nil
}

// OnChange registers fn to run after every change, from Set or from the
// file on disk.
func (f *File) OnChange(fn Listener) {
	f.ls.add(fn)
}

// OnReloadError registers fn to receive errors from reading the file after
// it changed on disk. The previous values stay in effect.
func (f *File) OnReloadError(fn func(error)) {
	f.mu.Lock()
	f.onErr = fn
	f.mu.Unlock()
}

// Watch reloads the file whenever it changes on disk. It only works on the
// OS filesystem and needs the file to exist.
func (f *File) Watch() {
	f.v.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}
		if err := f.Reload(); err != nil {
			f.mu.Lock()
			onErr := f.onErr
			f.mu.Unlock()
			if onErr != nil {
				onErr(err)
			}
		}
	})
	f.v.WatchConfig()
}

// Reload reads the file again and takes over every key whose value on disk
// changed since it was last read or saved. Listeners hear about each key
// whose current value changed as a result.
func (f *File) Reload() error {
	f.mu.Lock()
	if err := f.v.ReadInConfig(); err != nil {
		f.mu.Unlock()
		return fmt.Errorf("failed to reload settings %s: %w", f.path, err)
	}
	current := f.section()
	changed := make(map[string]any)
	for k, v := range current {
		if old, ok := f.disk[k]; ok && sameValue(old, v) {
			continue
		}
		if prev, ok := f.values[k]; !ok || !sameValue(prev, v) {
			changed[k] = v
		}
		f.values[k] = v
	}
	f.disk = current
	f.mu.Unlock()

	keys := make([]string, 0, len(changed))
	for k := range changed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		f.ls.notify(k, changed[k])
	}
	return nil
}

func (f *File) section() map[string]any {
	out := make(map[string]any)
	for k, v := range cast.ToStringMap(f.v.Get(Section)) {
		out[strings.ToLower(k)] = v
	}
	return out
}

func sameValue(a, b any) bool {
	return cast.ToString(a) == cast.ToString(b)
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
