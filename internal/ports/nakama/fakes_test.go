package nakama

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

type storedObject struct {
	value   string
	version string
}

// fakeStorage mimics the Nakama storage engine's version checks for system-owned objects.
type fakeStorage struct {
	mu      sync.Mutex
	objects map[string]map[string]storedObject
	seq     int
	writes  int
	deletes int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string]map[string]storedObject)}
}

func (f *fakeStorage) StorageRead(_ context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*api.StorageObject
	for _, r := range reads {
		if obj, ok := f.objects[r.Collection][r.Key]; ok {
			out = append(out, &api.StorageObject{Collection: r.Collection, Key: r.Key, Value: obj.value, Version: obj.version})
		}
	}
	return out, nil
}

func (f *fakeStorage) StorageWrite(_ context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, w := range writes {
		existing, exists := f.objects[w.Collection][w.Key]
		switch {
		case w.Version == "*" && exists:
			return nil, runtime.ErrStorageRejectedVersion
		case w.Version != "" && w.Version != "*" && (!exists || existing.version != w.Version):
			return nil, runtime.ErrStorageRejectedVersion
		}
	}

	f.writes++
	acks := make([]*api.StorageObjectAck, 0, len(writes))
	for _, w := range writes {
		f.seq++
		version := "v" + strconv.Itoa(f.seq)
		if f.objects[w.Collection] == nil {
			f.objects[w.Collection] = make(map[string]storedObject)
		}
		f.objects[w.Collection][w.Key] = storedObject{value: w.Value, version: version}
		acks = append(acks, &api.StorageObjectAck{Collection: w.Collection, Key: w.Key, Version: version})
	}
	return acks, nil
}

func (f *fakeStorage) StorageList(_ context.Context, _, _, collection string, limit int, cursor string) ([]*api.StorageObject, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	keys := make([]string, 0, len(f.objects[collection]))
	for k := range f.objects[collection] {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	start := 0
	if cursor != "" {
		var err error
		if start, err = strconv.Atoi(cursor); err != nil {
			return nil, "", fmt.Errorf("bad cursor %q", cursor)
		}
	}
	end := min(start+limit, len(keys))
	out := make([]*api.StorageObject, 0, end-start)
	for _, k := range keys[start:end] {
		obj := f.objects[collection][k]
		out = append(out, &api.StorageObject{Collection: collection, Key: k, Value: obj.value, Version: obj.version})
	}
	next := ""
	if end < len(keys) {
		next = strconv.Itoa(end)
	}
	return out, next, nil
}

func (f *fakeStorage) StorageDelete(_ context.Context, deletes []*runtime.StorageDelete) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, d := range deletes {
		existing, exists := f.objects[d.Collection][d.Key]
		if exists && d.Version != "" && existing.version != d.Version {
			return runtime.ErrStorageRejectedVersion
		}
	}
	for _, d := range deletes {
		if _, exists := f.objects[d.Collection][d.Key]; exists {
			f.deletes++
			delete(f.objects[d.Collection], d.Key)
		}
	}
	return nil
}

func (f *fakeStorage) has(collection, key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[collection][key]
	return ok
}

// fakeEvents records events sent through the runtime.
type fakeEvents struct {
	mu     sync.Mutex
	events []*api.Event
	err    error
}

func (f *fakeEvents) Event(_ context.Context, evt *api.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, evt)
	return nil
}
